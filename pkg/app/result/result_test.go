package result

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chainsafe/cbdc-gateway/pkg/app/errors"
)

func TestFail_InternalDetailIsHidden(t *testing.T) {
	cause := errors.New("pq: password authentication failed for user cbdc at 10.0.0.5")
	res := Fail[int](apperrors.GeneralError(cause))

	assert.False(t, res.Success)
	assert.Equal(t, apperrors.KindInternal, res.Kind)
	assert.Equal(t, "Internal Server Error", res.Error)
	assert.Equal(t, res.Message, res.Error)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode())
	require.ErrorIs(t, res.Err(), cause, "the cause stays available for logging")

	plain := Fail[int](errors.New("boom"))
	assert.Equal(t, apperrors.KindInternal, plain.Kind)
	assert.NotContains(t, plain.Error, "boom")
}

func TestFail_ClientErrorsKeepDetail(t *testing.T) {
	res := Fail[int](apperrors.LedgerError(errors.New("insufficient balance"), "ledger rejected the transaction"))

	assert.Equal(t, apperrors.KindLedger, res.Kind)
	assert.Equal(t, "insufficient balance", res.Error)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode())
}

func TestFrom(t *testing.T) {
	ok := From(7, nil, "seven")
	assert.True(t, ok.Success)
	assert.Equal(t, 7, ok.Data)
	assert.NoError(t, ok.Err())

	failed := From(0, apperrors.ValidationError(nil, "amount is required"), "ignored")
	assert.False(t, failed.Success)
	assert.Equal(t, "amount is required", failed.Message)
	assert.Equal(t, http.StatusBadRequest, failed.StatusCode())
	assert.Equal(t, "amount is required", failed.WithMessage("other").Message)
}
