package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-roster/internal/storage"
	"github.com/aanand-mishra/student-roster/internal/types"
)

var validate = newValidator()

// newValidator registers the record rules used by the Student tags:
//
//	notblank    → the string is not empty after trimming
//	points_step → the number is a multiple of types.Increment
func newValidator() *validator.Validate {
	v := validator.New()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}))
	must(v.RegisterValidation("points_step", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%types.Increment == 0
	}))
	return v
}

// loaded is a decoded entry. malformed is set when the stored bytes could
// not be used and value holds the default instead.
type loaded[T any] struct {
	value     T
	malformed error
}

func loadStudents(ctx context.Context, kv storage.Storage) (loaded[[]types.Student], error) {
	out := loaded[[]types.Student]{value: []types.Student{}}

	raw, err := kv.Get(ctx, storage.KeyStudents)
	if errors.Is(err, storage.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("load students: %w", err)
	}

	students, err := DecodeStudents(raw)
	if err != nil {
		out.malformed = err
		return out, nil
	}
	out.value = students
	return out, nil
}

func loadTotal(ctx context.Context, kv storage.Storage) (loaded[int], error) {
	var out loaded[int]

	raw, err := kv.Get(ctx, storage.KeyTotalPoints)
	if errors.Is(err, storage.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("load total: %w", err)
	}

	total, err := DecodeTotal(raw)
	if err != nil {
		out.malformed = err
		return out, nil
	}
	out.value = total
	return out, nil
}

// DecodeStudents parses a persisted "students" entry.
//
// Besides valid JSON it requires every record to pass the Student tags
// (an id, a non-blank name, points that are a non-negative multiple of
// types.Increment) and ids to be unique.
func DecodeStudents(raw []byte) ([]types.Student, error) {
	var students []types.Student
	if err := json.Unmarshal(raw, &students); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	if students == nil {
		students = []types.Student{}
	}

	seen := make(map[string]struct{}, len(students))
	for _, st := range students {
		if err := validate.Struct(st); err != nil {
			return nil, fmt.Errorf("decode students: %w", err)
		}
		if _, dup := seen[st.ID]; dup {
			return nil, fmt.Errorf("decode students: duplicate id %s", st.ID)
		}
		seen[st.ID] = struct{}{}
	}

	return students, nil
}

// DecodeTotal parses a persisted "totalPoints" entry.
func DecodeTotal(raw []byte) (int, error) {
	var total int
	if err := json.Unmarshal(raw, &total); err != nil {
		return 0, fmt.Errorf("decode total: %w", err)
	}
	return total, nil
}

func encodeStudents(students []types.Student) ([]byte, error) {
	value, err := json.Marshal(students)
	if err != nil {
		return nil, fmt.Errorf("encode students: %w", err)
	}
	return value, nil
}

func encodeTotal(total int) ([]byte, error) {
	value, err := json.Marshal(total)
	if err != nil {
		return nil, fmt.Errorf("encode total: %w", err)
	}
	return value, nil
}
