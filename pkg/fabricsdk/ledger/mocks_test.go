package ledger

import "context"

type mockContract struct {
	SubmitFunc   func(ctx context.Context, fn string, args ...string) ([]byte, error)
	EvaluateFunc func(ctx context.Context, fn string, args ...string) ([]byte, error)
}

func (m *mockContract) Submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, fn, args...)
	}
	return nil, nil
}

func (m *mockContract) Evaluate(ctx context.Context, fn string, args ...string) ([]byte, error) {
	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(ctx, fn, args...)
	}
	return nil, nil
}
