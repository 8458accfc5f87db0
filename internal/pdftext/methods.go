package pdftext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// method is one way of turning a PDF file into per-page text.
type method interface {
	Name() string
	Pages(ctx context.Context, path, password string) ([]string, error)
}

// readerMethod uses the pure-Go ledongthuc/pdf reader. With tables set,
// rows that line up into columns are repeated after the page text as
// pipe-separated tables.
type readerMethod struct {
	tables bool
}

func (readerMethod) Name() string { return "ledongthuc" }

func (m readerMethod) Pages(ctx context.Context, path, password string) (pages []string, err error) {
	// The reader panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var reader *pdflib.Reader
	if password != "" {
		tried := false
		reader, err = pdflib.NewReaderEncrypted(f, st.Size(), func() string {
			if tried {
				return ""
			}
			tried = true
			return password
		})
	} else {
		reader, err = pdflib.NewReader(f, st.Size())
	}
	if err != nil {
		if errors.Is(err, pdflib.ErrInvalidPassword) || strings.Contains(err.Error(), "encrypted") {
			return nil, fmt.Errorf("%w: %v", errEncrypted, err)
		}
		return nil, err
	}

	numPages := reader.NumPage()
	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		if m.tables {
			if rows, err := page.GetTextByRow(); err == nil {
				text += renderTables(i, findTables(rows))
			}
		}
		pages = append(pages, text)
	}
	return pages, nil
}

var disablePdfcpuConfig sync.Once

// repairMethod rewrites the file with pdfcpu in relaxed validation mode,
// which fixes broken xref tables and object streams, then reads it again.
type repairMethod struct {
	reader readerMethod
}

func (repairMethod) Name() string { return "pdfcpu-repair" }

func (m repairMethod) Pages(ctx context.Context, path, password string) ([]string, error) {
	disablePdfcpuConfig.Do(api.DisableConfigDir)

	tmp, err := os.CreateTemp("", "pdfqa-repaired-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	repaired := tmp.Name()
	tmp.Close()
	defer os.Remove(repaired)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if password != "" {
		conf.UserPW = password
	}
	if err := api.OptimizeFile(path, repaired, conf); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "password") {
			return nil, fmt.Errorf("%w: %v", errEncrypted, err)
		}
		return nil, fmt.Errorf("pdfcpu optimize: %w", err)
	}
	return m.reader.Pages(ctx, repaired, password)
}

// pdftotextMethod shells out to poppler's pdftotext when it is installed.
type pdftotextMethod struct{}

func (pdftotextMethod) Name() string { return "pdftotext" }

func (pdftotextMethod) Available() bool {
	_, err := exec.LookPath("pdftotext")
	return err == nil
}

func (pdftotextMethod) Pages(ctx context.Context, path, password string) ([]string, error) {
	args := []string{"-layout"}
	if password != "" {
		args = append(args, "-upw", password)
	}
	args = append(args, path, "-")

	cmd := exec.CommandContext(ctx, "pdftotext", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(strings.ToLower(msg), "password") {
			return nil, fmt.Errorf("%w: pdftotext: %s", errEncrypted, msg)
		}
		return nil, fmt.Errorf("pdftotext: %w: %s", err, msg)
	}
	// Pages are separated by form feeds.
	return strings.Split(strings.TrimSuffix(string(out), "\f"), "\f"), nil
}
