package validation

import (
	"strings"
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

type createDoc struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Department  string `json:"department"`
}

func validCreate() createDoc {
	return createDoc{
		Title:       "Cannot login",
		Description: strings.Repeat("d", DescriptionMinLength),
		Priority:    string(domain.TicketPriorityHigh),
		Department:  string(domain.DepartmentTechnicalSupport),
	}
}

func TestValidateTicketCreate(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*createDoc)
		field   string
		wantErr bool
	}{
		{"valid", func(*createDoc) {}, "", false},
		{"title at minimum", func(d *createDoc) { d.Title = "abcde" }, "", false},
		{"title too short", func(d *createDoc) { d.Title = "abcd" }, "title", true},
		{"title too long", func(d *createDoc) { d.Title = strings.Repeat("t", TitleMaxLength+1) }, "title", true},
		{"description too short", func(d *createDoc) { d.Description = "short" }, "description", true},
		{"description too long", func(d *createDoc) { d.Description = strings.Repeat("d", DescriptionMaxLength+1) }, "description", true},
		{"unknown priority", func(d *createDoc) { d.Priority = "Critical" }, "priority", true},
		{"unknown department", func(d *createDoc) { d.Department = "Legal" }, "department", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := validCreate()
			tc.mutate(&doc)
			err := v.Validate(DocumentTicketCreate, doc)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			domainErr := apperrors.ToDomainError(err)
			if domainErr == nil || domainErr.Code != apperrors.CodeValidationFailed {
				t.Fatalf("Validate() error = %v, want VALIDATION_FAILED", err)
			}
			if _, ok := domainErr.Details[tc.field]; !ok {
				t.Fatalf("details %v missing field %q", domainErr.Details, tc.field)
			}
		})
	}
}

func TestValidateRequiredFields(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	err = v.Validate(DocumentTicketCreate, map[string]any{"title": "A fine title"})
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil || domainErr.Code != apperrors.CodeValidationFailed {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, field := range []string{"description", "priority", "department"} {
		if _, ok := domainErr.Details[field]; !ok {
			t.Errorf("details missing %q: %v", field, domainErr.Details)
		}
	}
}

func TestValidateTicketUpdate(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := v.Validate(DocumentTicketUpdate, map[string]any{}); err != nil {
		t.Fatalf("empty patch should be valid: %v", err)
	}
	if err := v.Validate(DocumentTicketUpdate, map[string]any{"status": "Resolved", "rating": 5}); err != nil {
		t.Fatalf("valid patch rejected: %v", err)
	}
	for _, bad := range []map[string]any{
		{"status": "Archived"},
		{"rating": 0},
		{"rating": 6},
		{"assignedTo": map[string]any{"id": ""}},
	} {
		if err := v.Validate(DocumentTicketUpdate, bad); !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
			t.Errorf("patch %v: error = %v, want VALIDATION_FAILED", bad, err)
		}
	}
}

func TestValidateComment(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := v.Validate(DocumentComment, map[string]any{"content": "hi"}); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if err := v.Validate(DocumentComment, map[string]any{"content": ""}); !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
		t.Fatalf("empty comment error = %v", err)
	}
	if err := v.Validate(Document("other"), nil); err == nil {
		t.Fatal("unknown schema should fail")
	}
}
