package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordsearch/pkg/errors"
)

func ptr(s string) *string { return &s }

func TestTexts(t *testing.T) {
	tests := []struct {
		name      string
		req       ingestion.IngestRequest
		want      []string
		badFields []string
	}{
		{name: "single", req: ingestion.IngestRequest{Text: ptr("hello")}, want: []string{"hello"}},
		{name: "empty document", req: ingestion.IngestRequest{Text: ptr("")}, want: []string{""}},
		{name: "batch", req: ingestion.IngestRequest{Texts: []string{"a", "", "c"}}, want: []string{"a", "", "c"}},
		{name: "missing", req: ingestion.IngestRequest{}, badFields: []string{"text"}},
		{name: "both", req: ingestion.IngestRequest{Text: ptr("a"), Texts: []string{"b"}}, badFields: []string{"text"}},
		{name: "empty batch", req: ingestion.IngestRequest{Texts: []string{}}, badFields: []string{"texts"}},
		{name: "too long", req: ingestion.IngestRequest{Texts: []string{"ok", strings.Repeat("x", 11)}}, badFields: []string{"texts[1]"}},
		{name: "too many", req: ingestion.IngestRequest{Texts: make([]string, MaxBatchSize+1)}, badFields: []string{"texts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Texts(&tt.req, 10)
			if tt.badFields == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrInvalidInput)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			for _, f := range tt.badFields {
				assert.Contains(t, vErr.Fields, f)
			}
		})
	}
}
