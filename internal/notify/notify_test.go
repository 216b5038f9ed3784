package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/validation"
)

func TestClassify(t *testing.T) {
	v := validation.Violations{"name": "required"}
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"validation", fmt.Errorf("save: %w", v), KindValidation},
		{"duplicate", fmt.Errorf("insert: %w", model.ErrDuplicate), KindConstraint},
		{"referenced", model.ErrReferenced, KindConstraint},
		{"not found", fmt.Errorf("update: %w", model.ErrNotFound), KindNotFound},
		{"other", errors.New("connection reset"), KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFailureMessage(t *testing.T) {
	n := Failure("Failed to update quantity", errors.New("dial tcp: timeout"))
	if n.Message != "Failed to update quantity" || n.Kind != KindNetwork {
		t.Errorf("network notice = %+v", n)
	}

	dup := fmt.Errorf("product already in list: %w", model.ErrDuplicate)
	n = Failure("Error adding product to list", dup)
	if n.Message != dup.Error() || n.Kind != KindConstraint {
		t.Errorf("constraint notice = %+v", n)
	}
}

func TestMulti(t *testing.T) {
	var got []string
	rec := func(tag string) Notifier {
		return Func(func(_ context.Context, n Notice) { got = append(got, tag+":"+n.Message) })
	}
	Multi{rec("a"), nil, rec("b")}.Notify(context.Background(), Success("ok"))
	if len(got) != 2 || got[0] != "a:ok" || got[1] != "b:ok" {
		t.Errorf("got %v", got)
	}
}
