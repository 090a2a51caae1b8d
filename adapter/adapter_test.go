package adapter

import (
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sliceStream struct {
	frags  []string
	err    error
	closed int
}

func (s *sliceStream) Fragments() iter.Seq[string] { return slices.Values(s.frags) }
func (s *sliceStream) Err() error                  { return s.err }
func (s *sliceStream) Close() error                { s.closed++; return nil }

func TestCollect(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		stream  *sliceStream
		want    string
		wantErr error
	}{
		{"empty", &sliceStream{}, "", nil},
		{"ordered fragments", &sliceStream{frags: []string{"Hello", " ", "world"}}, "Hello world", nil},
		{"transport error", &sliceStream{frags: []string{"partial"}, err: errTransport}, "partial", errTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Collect(tt.stream)
			assert.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, 1, tt.stream.closed)
		})
	}
}

var errTransport = errors.New("connection reset")
