package outreach

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ignite/outreach-tracker/internal/domain"
)

// Deduper filters a contact batch against existing history.
type Deduper interface {
	Filter(ctx context.Context, userID int64, candidates []domain.Candidate, mergeFriends bool) ([]domain.Candidate, error)
}

// BatchInput describes one generation request.
type BatchInput struct {
	Recipients      []domain.Recipient
	Stage           domain.Stage
	TemplateID      *int64
	AvoidDuplicates bool
}

// BatchResult reports what a batch produced.
type BatchResult struct {
	Created []domain.OutreachRecord `json:"created"`
	Skipped int                     `json:"skipped_duplicates"`
	Failed  []BatchFailure          `json:"failed,omitempty"`
}

// BatchFailure is a contact whose draft could not be produced.
type BatchFailure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// GenerateBatch drafts one record per surviving contact. With
// AvoidDuplicates the batch first goes through the deduper, merging opted-in
// friends' history. Per-contact failures are collected and the rest of the
// batch continues.
func (s *Service) GenerateBatch(ctx context.Context, ownerID int64, dedup Deduper, in BatchInput) (*BatchResult, error) {
	stage := in.Stage
	if stage == "" {
		stage = domain.StageOutreach
	}
	if _, err := domain.ParseStage(string(stage)); err != nil {
		return nil, err
	}
	owner, err := s.users.GetUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	var tmpl *domain.Template
	if in.TemplateID != nil {
		if tmpl, err = s.stageTemplate(ctx, ownerID, *in.TemplateID, stage); err != nil {
			return nil, err
		}
	}

	candidates := make([]domain.Candidate, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		candidates = append(candidates, domain.Candidate{Recipient: r, Stage: stage})
	}
	if in.AvoidDuplicates && dedup != nil {
		if candidates, err = dedup.Filter(ctx, ownerID, candidates, true); err != nil {
			return nil, fmt.Errorf("dedup: %w", err)
		}
	}

	res := &BatchResult{Skipped: len(in.Recipients) - len(candidates)}
	for _, c := range candidates {
		rec, err := s.draft(ctx, owner, c, tmpl)
		if err != nil {
			s.log.Warn("batch contact failed", "recipient_email", c.Recipient.Email, "stage", stage, "error", err)
			res.Failed = append(res.Failed, BatchFailure{Email: c.Recipient.Email, Error: err.Error()})
			continue
		}
		res.Created = append(res.Created, *rec)
	}
	s.log.Info("batch generated", "owner_id", ownerID, "created", len(res.Created), "skipped", res.Skipped, "failed", len(res.Failed))
	return res, nil
}

func (s *Service) draft(ctx context.Context, owner *domain.User, c domain.Candidate, tmpl *domain.Template) (*domain.OutreachRecord, error) {
	if strings.TrimSpace(c.Recipient.Email) == "" {
		return nil, errors.New("missing email")
	}
	content, err := s.content.Generate(ctx, domain.DraftRequest{
		Recipient: c.Recipient,
		Stage:     c.Stage,
		Owner:     owner.Profile(),
		Template:  tmpl,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %v", domain.ErrCollaboratorFailure, err)
	}
	rec := &domain.OutreachRecord{
		OwnerID:          owner.ID,
		RecipientEmail:   strings.TrimSpace(c.Recipient.Email),
		RecipientName:    c.Recipient.Name,
		RecipientCompany: c.Recipient.Company,
		Subject:          content.Subject,
		Body:             content.Body,
		Stage:            c.Stage,
		Status:           domain.StatusDraft,
		CreatedAt:        s.now(),
	}
	if tmpl != nil {
		tid := tmpl.ID
		rec.TemplateID = &tid
	}
	id, err := s.repo.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	rec.ID = id
	return rec, nil
}

// ParseContactsCSV reads a contact export with a header row. Column names
// follow the Apollo export (Email, First Name, Last Name, Company, Title,
// Website) and are matched case-insensitively. Rows without an email are
// dropped.
func ParseContactsCSV(r io.Reader) ([]domain.Recipient, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	emailCol, ok := cols["email"]
	if !ok {
		return nil, errors.New("csv has no Email column")
	}

	field := func(row []string, name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var out []domain.Recipient
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if emailCol >= len(row) || strings.TrimSpace(row[emailCol]) == "" {
			continue
		}
		out = append(out, domain.Recipient{
			Email:   strings.TrimSpace(row[emailCol]),
			Name:    strings.TrimSpace(field(row, "first name") + " " + field(row, "last name")),
			Company: field(row, "company"),
			Title:   field(row, "title"),
			Website: field(row, "website"),
		})
	}
	return out, nil
}
