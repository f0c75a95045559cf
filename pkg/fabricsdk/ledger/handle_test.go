package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
)

func endorseError(t *testing.T, msgs ...string) error {
	t.Helper()
	st := status.New(codes.Aborted, "failed to endorse transaction, see attached details for more info")
	for i, msg := range msgs {
		var err error
		st, err = st.WithDetails(protoadapt.MessageV1Of(&gateway.ErrorDetail{
			Address: fmt.Sprintf("peer%d.example.com:7051", i),
			MspId:   "BankAMSP",
			Message: msg,
		}))
		require.NoError(t, err)
	}
	return st.Err()
}

func TestHandle_SubmitPassesArguments(t *testing.T) {
	var gotFn string
	var gotArgs []string
	h := NewHandle(&mockContract{
		SubmitFunc: func(_ context.Context, fn string, args ...string) ([]byte, error) {
			gotFn, gotArgs = fn, args
			return []byte("tx-1"), nil
		},
	}, nil)

	out, err := h.Submit(context.Background(), "Transfer", "bob", "10")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", string(out))
	assert.Equal(t, "Transfer", gotFn)
	assert.Equal(t, []string{"bob", "10"}, gotArgs)
}

func TestHandle_UnusableAfterInvalidate(t *testing.T) {
	calls := 0
	h := NewHandle(&mockContract{
		EvaluateFunc: func(context.Context, string, ...string) ([]byte, error) {
			calls++
			return []byte("1"), nil
		},
	}, nil)

	_, err := h.Evaluate(context.Background(), "TotalSupply")
	require.NoError(t, err)

	h.Invalidate()
	_, err = h.Evaluate(context.Background(), "TotalSupply")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConnection))
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = h.Submit(context.Background(), "Mint", "1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConnection))
	assert.Equal(t, 1, calls)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     apperrors.Kind
		category apperrors.Category
		message  string
	}{
		{
			name:     "peer unavailable",
			err:      status.Error(codes.Unavailable, "connection refused"),
			kind:     apperrors.KindConnection,
			category: apperrors.CategoryRecovering,
		},
		{
			name:     "deadline",
			err:      status.Error(codes.DeadlineExceeded, "deadline exceeded"),
			kind:     apperrors.KindConnection,
			category: apperrors.CategoryConnectionTimeout,
		},
		{
			name:     "context deadline",
			err:      fmt.Errorf("evaluate: %w", context.DeadlineExceeded),
			kind:     apperrors.KindConnection,
			category: apperrors.CategoryConnectionTimeout,
		},
		{
			name:     "endorsement rejected with details",
			err:      endorseError(t, "chaincode response 500, insufficient funds", "chaincode response 500, insufficient funds"),
			kind:     apperrors.KindLedger,
			category: apperrors.CategoryDependencyFailure,
			message:  "chaincode response 500, insufficient funds",
		},
		{
			name:     "status without details",
			err:      status.Error(codes.FailedPrecondition, "token not initialized"),
			kind:     apperrors.KindLedger,
			category: apperrors.CategoryDependencyFailure,
			message:  "token not initialized",
		},
		{
			name:     "plain commit failure",
			err:      errors.New("transaction abc failed to commit with status code 11 (MVCC_READ_CONFLICT)"),
			kind:     apperrors.KindLedger,
			category: apperrors.CategoryDependencyFailure,
			message:  "transaction abc failed to commit with status code 11 (MVCC_READ_CONFLICT)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("Transfer", tt.err)
			var svcErr *apperrors.ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, tt.kind, svcErr.Kind)
			assert.Equal(t, tt.category, svcErr.Category)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}

	assert.NoError(t, Classify("Transfer", nil))

	already := apperrors.ValidationError(nil, "bad amount")
	assert.Same(t, already, Classify("Transfer", already))
}

func TestHandle_ClassifiesFailures(t *testing.T) {
	h := NewHandle(&mockContract{
		SubmitFunc: func(context.Context, string, ...string) ([]byte, error) {
			return nil, endorseError(t, "caller is not a minter")
		},
	}, nil)

	_, err := h.Submit(context.Background(), "Mint", "5")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindLedger))
	assert.Equal(t, "caller is not a minter", err.Error())
}

func TestTimeouts_WithDefaults(t *testing.T) {
	got := Timeouts{Endorse: 5}.WithDefaults()
	assert.Equal(t, Timeouts{Evaluate: DefaultTimeout, Endorse: 5, Submit: DefaultTimeout, CommitStatus: DefaultTimeout}, got)
	assert.Equal(t, DefaultTimeouts(), Timeouts{}.WithDefaults())
}
