package submissionrepository

import (
	"reflect"
	"strings"
	"testing"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

func TestListQueryFilters(t *testing.T) {
	repo := &SubmissionRepository{}

	tests := []struct {
		name   string
		filter domain.SubmissionFilter
		where  string
		args   []interface{}
	}{
		{
			name:   "finals only by default",
			filter: domain.SubmissionFilter{},
			where:  " WHERE is_draft = ? ORDER BY submitted_at DESC LIMIT 500",
			args:   []interface{}{false},
		},
		{
			name: "statuses are alternatives",
			filter: domain.SubmissionFilter{
				StudentID: "stu-1",
				Statuses:  []domain.SubmissionStatus{domain.SubmissionGraded, domain.SubmissionError},
				Limit:     10,
			},
			where: " WHERE student_id = ? AND (status = ? OR status = ?) AND is_draft = ? ORDER BY submitted_at DESC LIMIT 10",
			args:  []interface{}{"stu-1", "graded", "error", false},
		},
		{
			name: "single status with drafts",
			filter: domain.SubmissionFilter{
				AssignmentID:  "a1",
				Statuses:      []domain.SubmissionStatus{domain.SubmissionPending},
				IncludeDrafts: true,
				Limit:         9000,
			},
			where: " WHERE assignment_id = ? AND (status = ?) ORDER BY submitted_at DESC LIMIT 500",
			args:  []interface{}{"a1", "pending"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := repo.listQuery(tt.filter)
			if !strings.HasPrefix(query, "SELECT id, student_id,") || !strings.Contains(query, " FROM public.code_submissions") {
				t.Fatalf("unexpected select %q", query)
			}
			if !strings.HasSuffix(query, tt.where) {
				t.Fatalf("query = %q, want suffix %q", query, tt.where)
			}
			if !reflect.DeepEqual(args, tt.args) {
				t.Fatalf("args = %v, want %v", args, tt.args)
			}
		})
	}
}
