package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
)

// ErrSessionClosed is returned by a handle used after its session ended.
var ErrSessionClosed = errors.New("ledger session is closed")

// Classify maps an invocation failure onto the gateway taxonomy. Transport
// failures become connection errors; everything else the ledger reports is a
// ledger error whose text is the ledger's own message.
func Classify(fn string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ConnectionTimeoutError(err, fmt.Sprintf("%s timed out", fn))
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.ConnectionError(err, fmt.Sprintf("%s was canceled", fn))
	}

	st, ok := status.FromError(err)
	if !ok {
		return apperrors.LedgerError(err, fmt.Sprintf("%s rejected by ledger", fn))
	}

	switch st.Code() {
	case codes.Unavailable, codes.Canceled:
		return apperrors.ConnectionError(err, fmt.Sprintf("ledger unavailable during %s", fn))
	case codes.DeadlineExceeded:
		return apperrors.ConnectionTimeoutError(err, fmt.Sprintf("%s timed out", fn))
	default:
		return apperrors.LedgerError(errors.New(Message(st)), fmt.Sprintf("%s rejected by ledger", fn))
	}
}

// Message returns the ledger's explanation for st: the distinct messages of
// the attached peer error details, or the status message when there are none.
func Message(st *status.Status) string {
	var msgs []string
	seen := make(map[string]bool)
	for _, d := range st.Details() {
		detail, ok := d.(*gateway.ErrorDetail)
		if !ok || detail.GetMessage() == "" || seen[detail.GetMessage()] {
			continue
		}
		seen[detail.GetMessage()] = true
		msgs = append(msgs, detail.GetMessage())
	}
	if len(msgs) == 0 {
		return st.Message()
	}
	return strings.Join(msgs, "; ")
}
