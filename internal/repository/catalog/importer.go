package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
)

// Export file names as produced by the content platform.
const (
	exportPrefix    = "BigSpring_takehome_data - "
	fileCompanies   = exportPrefix + "comapny.json"
	fileUsers       = exportPrefix + "users.csv"
	filePlays       = exportPrefix + "play.csv"
	fileReps        = exportPrefix + "rep.csv"
	fileAssets      = exportPrefix + "asset.csv"
	fileSubmissions = exportPrefix + "submission.csv"
	fileFeedback    = exportPrefix + "feedback.csv"
	fileAssignments = exportPrefix + "play_assignment.csv"
)

// ReadExport parses a platform export directory. The files may sit in dir
// itself or in its database/ subdirectory. Row order defines rep and
// assignment positions.
func ReadExport(dir string) (catalog.Data, error) {
	if st, err := os.Stat(filepath.Join(dir, "database")); err == nil && st.IsDir() {
		dir = filepath.Join(dir, "database")
	}

	var data catalog.Data
	var err error

	if data.Companies, err = readCompanies(filepath.Join(dir, fileCompanies)); err != nil {
		return catalog.Data{}, err
	}

	err = errors.Join(
		readCSV(filepath.Join(dir, fileUsers), func(r row) error {
			data.Users = append(data.Users, catalog.User{
				ID:          r.get("id"),
				Username:    r.get("username"),
				DisplayName: r.get("display_name"),
				Role:        r.get("role"),
				CompanyID:   r.get("company_id"),
				IsActive:    parseFlag(r.get("is_active")),
			})
			return nil
		}),
		readCSV(filepath.Join(dir, filePlays), func(r row) error {
			data.Plays = append(data.Plays, catalog.Play{
				ID:          r.get("id"),
				CompanyID:   r.get("company_id"),
				Title:       r.get("title"),
				Description: r.get("description"),
				IsActive:    parseFlag(r.get("is_active")),
			})
			return nil
		}),
		readCSV(filepath.Join(dir, fileReps), func(r row) error {
			data.Reps = append(data.Reps, catalog.Rep{
				ID:          r.get("id"),
				PlayID:      r.get("play_id"),
				CompanyID:   r.get("company_id"),
				PromptTitle: r.get("prompt_title"),
				PromptText:  r.get("prompt_text"),
				PromptType:  r.get("prompt_type"),
				AssetID:     r.opt("asset_id"),
				Position:    r.index,
			})
			return nil
		}),
		readCSV(filepath.Join(dir, fileAssets), func(r row) error {
			data.Assets = append(data.Assets, catalog.Asset{
				ID:        r.get("id"),
				Type:      r.get("type"),
				FileName:  r.get("file_name"),
				CompanyID: r.get("company_id"),
			})
			return nil
		}),
		readCSV(filepath.Join(dir, fileSubmissions), func(r row) error {
			data.Submissions = append(data.Submissions, catalog.Submission{
				ID:             r.get("id"),
				UserID:         r.get("user_id"),
				RepID:          r.get("rep_id"),
				SubmittedAt:    r.get("submitted_at"),
				SubmissionType: r.get("submission_type"),
				AssetID:        r.get("asset_id"),
				CompanyID:      r.get("company_id"),
			})
			return nil
		}),
		readCSV(filepath.Join(dir, fileFeedback), func(r row) error {
			score, err := strconv.Atoi(strings.TrimSpace(r.get("score")))
			if err != nil {
				return fmt.Errorf("row %d: score: %w", r.index+1, err)
			}
			data.Feedback = append(data.Feedback, catalog.Feedback{
				ID:           r.get("id"),
				SubmissionID: r.get("submission_id"),
				CompanyID:    r.get("company_id"),
				Score:        score,
				Text:         r.get("text"),
				CreatedAt:    r.get("created_at"),
			})
			return nil
		}),
		readCSV(filepath.Join(dir, fileAssignments), func(r row) error {
			data.Assignments = append(data.Assignments, catalog.Assignment{
				ID:           r.get("id"),
				UserID:       r.get("user_id"),
				PlayID:       r.get("play_id"),
				AssignedDate: r.get("assigned_date"),
				Status:       r.get("status"),
				CompletedAt:  r.opt("completed_at"),
				Position:     r.index,
			})
			return nil
		}),
	)
	if err != nil {
		return catalog.Data{}, err
	}
	return data, nil
}

func readCompanies(path string) ([]catalog.Company, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read companies: %w", err)
	}
	var doc struct {
		Companies []catalog.Company `json:"companies"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return doc.Companies, nil
}

// row is one CSV record addressed by header name.
type row struct {
	index  int
	header map[string]int
	values []string
}

func (r row) get(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

func (r row) opt(col string) *string {
	v := r.get(col)
	if v == "" {
		return nil
	}
	return &v
}

func parseFlag(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

func readCSV(path string, fn func(row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1

	head, err := rd.Read()
	if err != nil {
		return fmt.Errorf("read header %s: %w", filepath.Base(path), err)
	}
	header := make(map[string]int, len(head))
	for i, h := range head {
		header[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := header["id"]; !ok {
		return fmt.Errorf("%s: missing id column", filepath.Base(path))
	}

	for i := 0; ; i++ {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		if err := fn(row{index: i, header: header, values: rec}); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
}
