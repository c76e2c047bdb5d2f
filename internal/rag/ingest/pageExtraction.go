package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

const pageExtractTimeout = 10 * time.Second

func extractPDF(path string) ([]rawPage, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []rawPage
	numPages := f.NumPage()
	logger.Debug("Extracting pdf", "path", path, "pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// one bad page should not sink the document
			logger.Warn("Skipping unreadable pdf page", "page", i, "error", err)
			continue
		}

		pages = append(pages, rawPage{
			Number:  i,
			Content: content,
		})
	}
	if len(pages) == 0 {
		return nil, errors.New("no readable pages in pdf")
	}
	return pages, nil
}

// extractdocxTxtRtf reads .odt, .docx, .rtf or plain text. Page boundaries are not
// available for these formats, so everything lands on page 1.
func extractdocxTxtRtf(path string) ([]rawPage, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}
	return []rawPage{{Number: 1, Content: text}}, nil
}

// protectExtract bounds GetPlainText, which can spin on malformed content streams.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("pdf page panic: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageExtractTimeout):
		return "", errors.New("page extraction timed out")
	}
}
