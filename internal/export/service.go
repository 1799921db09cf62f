// Package export assembles order archives for bookkeeping: the order data
// plus the documents attached to each order (rendered contract, payment
// proof), collected into a directory ready to be zipped or mailed.
package export

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

// DocumentStore reads locally stored documents by their persisted reference.
type DocumentStore interface {
	Open(ref string) (*os.File, error)
}

// Item links one exported order to the files collected for it. Paths are
// empty when the order has no such document.
type Item struct {
	Order        *order.Transaction
	ContractPath string
	ProofPath    string
}

// Service collects orders and their documents into an export directory.
type Service struct {
	orders   order.Repository
	files    DocumentStore
	client   *http.Client
	apiToken string
}

func NewService(orders order.Repository, files DocumentStore, apiToken string) *Service {
	return &Service{
		orders:   orders,
		files:    files,
		client:   &http.Client{Timeout: 30 * time.Second},
		apiToken: apiToken,
	}
}

// Export gathers the orders matching the filter and their documents into
// outputDir. Contracts live on the document service and are downloaded;
// payment proofs are copied from local storage.
func (s *Service) Export(ctx context.Context, filter order.ListFilter, outputDir string) ([]Item, error) {
	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	items := make([]Item, 0, len(orders))

	for _, t := range orders {
		item := Item{Order: t}

		if t.ContractURL != nil && *t.ContractURL != "" {
			path, err := s.downloadContract(ctx, t, outputDir)
			if err != nil {
				return nil, fmt.Errorf("downloading contract for order %s: %w", t.Code, err)
			}

			item.ContractPath = path
		}

		if t.PaymentProof != nil {
			path, err := s.copyProof(t, outputDir)
			if err != nil {
				return nil, fmt.Errorf("copying payment proof for order %s: %w", t.Code, err)
			}

			item.ProofPath = path
		}

		items = append(items, item)
	}

	return items, nil
}

func (s *Service) downloadContract(ctx context.Context, t *order.Transaction, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *t.ContractURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	if s.apiToken != "" {
		req.Header.Set("Authorization", "Token "+s.apiToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d for url %s", resp.StatusCode, *t.ContractURL)
	}

	path := filepath.Join(dir, determineFilename(resp, t))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return path, nil
}

func (s *Service) copyProof(t *order.Transaction, dir string) (string, error) {
	src, err := s.files.Open(*t.PaymentProof)
	if err != nil {
		return "", fmt.Errorf("opening proof: %w", err)
	}
	defer src.Close()

	path := filepath.Join(dir, fmt.Sprintf("%s_proof_%s", t.Code, filepath.Base(src.Name())))

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	return path, nil
}

func determineFilename(resp *http.Response, t *order.Transaction) string {
	// Prefer the filename the document service sends.
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if filename, ok := params["filename"]; ok && filename != "" {
				return strings.ReplaceAll(filepath.Base(filename), " ", "_")
			}
		}
	}

	ext := ".pdf"

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if exts, _ := mime.ExtensionsByType(ct); len(exts) > 0 {
			ext = exts[0]
		}
	}

	return fmt.Sprintf("%s_contract%s", t.Code, ext)
}

// Summary renders a plain-text manifest of the exported orders, one line
// per order, for the archive's cover file.
func (s *Service) Summary(items []Item) string {
	var sb strings.Builder

	for _, item := range items {
		t := item.Order

		docs := "no documents"

		var names []string
		if item.ContractPath != "" {
			names = append(names, filepath.Base(item.ContractPath))
		}
		if item.ProofPath != "" {
			names = append(names, filepath.Base(item.ProofPath))
		}
		if len(names) > 0 {
			docs = strings.Join(names, ", ")
		}

		sb.WriteString(fmt.Sprintf("* %s | %s | %s %s | %s | %s\n",
			t.CreatedAt.Format("2006-01-02"), t.Code,
			order.FormatAmount(t.Amount), t.Currency, t.Status, docs))
	}

	return sb.String()
}
