package bridge

import (
	"context"
	"encoding/json"
	"fmt"
)

// Call executes command through ex and unmarshals the raw result into T.
// It is the typed front door for code that knows the result shape; the
// bridge itself keeps treating results as opaque JSON.
func Call[T any](ctx context.Context, ex Executor, command string, args ...any) (T, error) {
	var out T
	result, err := ex.Execute(ctx, command, args...)
	if err != nil {
		return out, err
	}
	if len(result) == 0 || string(result) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s result: %w", command, err)
	}
	return out, nil
}
