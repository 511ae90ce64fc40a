package models

import (
	"strings"
	"testing"

	"github.com/geronlab/biorag/internal/errs"
)

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name     string
		req      QueryRequest
		maxChars int
		wantCode errs.Code
	}{
		{"valid", QueryRequest{Question: "does rapamycin extend lifespan?"}, 10000, ""},
		{"empty question", QueryRequest{Question: ""}, 10000, errs.CodeValidation},
		{"whitespace only", QueryRequest{Question: "   \t\n"}, 10000, errs.CodeValidation},
		{"too long", QueryRequest{Question: strings.Repeat("x", 10001)}, 10000, errs.CodeValidation},
		{"at limit", QueryRequest{Question: strings.Repeat("x", 10000)}, 10000, ""},
		{"negative max_results", QueryRequest{Question: "q", MaxResults: -1}, 10000, errs.CodeInvalidParameter},
		{"zero max_results is fine", QueryRequest{Question: "q", MaxResults: 0}, 10000, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(tt.maxChars)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errs.HasCode(err, tt.wantCode) {
				t.Errorf("Validate() = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}
