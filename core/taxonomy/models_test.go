package taxonomy

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr error
	}{
		{in: "stream", want: Stream},
		{in: " Classes ", want: Class},
		{in: "SUBJECT", want: Subject},
		{in: "chapters", want: Chapter},
		{in: "topic", wantErr: ErrUnknownKind},
		{in: "", wantErr: ErrUnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewID(t *testing.T) {
	tests := []struct {
		kind Kind
		re   *regexp.Regexp
	}{
		{Stream, regexp.MustCompile(`^S[0-9A-F]{8}$`)},
		{Class, regexp.MustCompile(`^C[0-9A-F]{8}$`)},
		{Subject, regexp.MustCompile(`^SUB[0-9A-F]{8}$`)},
		{Chapter, regexp.MustCompile(`^CH[0-9A-F]{8}$`)},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			id := newID(tt.kind)
			assert.Regexp(t, tt.re, id)
			assert.NotEqual(t, id, newID(tt.kind))
		})
	}
}
