package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainsafe/cbdc-gateway/pkg/app/result"
	"github.com/chainsafe/cbdc-gateway/pkg/token"
)

const serviceName = "TokenService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the token Service.
// It logs method entry/exit, duration and the failure kind.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func logged[T any](ls *logService, method, identityName string, call func() result.Result[T], fields ...zap.Field) result.Result[T] {
	start := time.Now()

	base := []zap.Field{
		zap.String("service", serviceName),
		zap.String("method", method),
		zap.String("identity", identityName),
	}
	ls.logger.Debug(method+" started", append(base, fields...)...)

	res := call()

	duration := time.Since(start)
	if !res.Success {
		ls.logger.Error(method+" failed",
			append(base,
				zap.Duration("duration", duration),
				zap.Stringer("kind", res.Kind),
				zap.Error(res.Err()),
			)...,
		)
		return res
	}
	ls.logger.Info(method+" completed", append(base, zap.Duration("duration", duration))...)
	return res
}

func (ls *logService) Initialize(ctx context.Context, identityName string, req *token.InitializeRequest) result.Result[token.Receipt] {
	return logged(ls, "Initialize", identityName, func() result.Result[token.Receipt] {
		return ls.svc.Initialize(ctx, identityName, req)
	})
}

func (ls *logService) Mint(ctx context.Context, identityName string, req *token.AmountRequest) result.Result[token.Receipt] {
	return logged(ls, "Mint", identityName, func() result.Result[token.Receipt] {
		return ls.svc.Mint(ctx, identityName, req)
	}, zap.Any("request", req))
}

func (ls *logService) Burn(ctx context.Context, identityName string, req *token.AmountRequest) result.Result[token.Receipt] {
	return logged(ls, "Burn", identityName, func() result.Result[token.Receipt] {
		return ls.svc.Burn(ctx, identityName, req)
	}, zap.Any("request", req))
}

func (ls *logService) Transfer(ctx context.Context, identityName string, req *token.TransferRequest) result.Result[token.Receipt] {
	return logged(ls, "Transfer", identityName, func() result.Result[token.Receipt] {
		return ls.svc.Transfer(ctx, identityName, req)
	}, zap.Any("request", req))
}

func (ls *logService) BatchTransfer(ctx context.Context, identityName string, req *token.BatchTransferRequest) result.Result[BatchTransferReport] {
	var n int
	if req != nil {
		n = len(req.Transfers)
	}
	return logged(ls, "BatchTransfer", identityName, func() result.Result[BatchTransferReport] {
		return ls.svc.BatchTransfer(ctx, identityName, req)
	}, zap.Int("items", n))
}

func (ls *logService) TransferFrom(ctx context.Context, identityName string, req *token.TransferFromRequest) result.Result[token.Receipt] {
	return logged(ls, "TransferFrom", identityName, func() result.Result[token.Receipt] {
		return ls.svc.TransferFrom(ctx, identityName, req)
	}, zap.Any("request", req))
}

func (ls *logService) Approve(ctx context.Context, identityName string, req *token.ApproveRequest) result.Result[token.Receipt] {
	return logged(ls, "Approve", identityName, func() result.Result[token.Receipt] {
		return ls.svc.Approve(ctx, identityName, req)
	}, zap.Any("request", req))
}

func (ls *logService) Allowance(ctx context.Context, identityName string, req *token.AllowanceRequest) result.Result[token.Allowance] {
	return logged(ls, "Allowance", identityName, func() result.Result[token.Allowance] {
		return ls.svc.Allowance(ctx, identityName, req)
	}, zap.Any("request", req))
}

func (ls *logService) Balance(ctx context.Context, identityName string) result.Result[token.Balance] {
	return logged(ls, "Balance", identityName, func() result.Result[token.Balance] {
		return ls.svc.Balance(ctx, identityName)
	})
}

func (ls *logService) BatchBalance(ctx context.Context, req *token.BatchBalanceRequest) result.Result[[]BatchBalanceItem] {
	var ids []string
	if req != nil {
		ids = req.Identities
	}
	return logged(ls, "BatchBalance", "", func() result.Result[[]BatchBalanceItem] {
		return ls.svc.BatchBalance(ctx, req)
	}, zap.Strings("identities", ids))
}

func (ls *logService) CallerBatchBalance(ctx context.Context, callerName string, req *token.BatchBalanceRequest) result.Result[[]BatchBalanceItem] {
	var ids []string
	if req != nil {
		ids = req.Identities
	}
	return logged(ls, "CallerBatchBalance", callerName, func() result.Result[[]BatchBalanceItem] {
		return ls.svc.CallerBatchBalance(ctx, callerName, req)
	}, zap.Strings("identities", ids))
}

func (ls *logService) AccountID(ctx context.Context, identityName string) result.Result[token.Account] {
	return logged(ls, "AccountID", identityName, func() result.Result[token.Account] {
		return ls.svc.AccountID(ctx, identityName)
	})
}

func (ls *logService) TotalSupply(ctx context.Context, identityName string) result.Result[decimal.Decimal] {
	return logged(ls, "TotalSupply", identityName, func() result.Result[decimal.Decimal] {
		return ls.svc.TotalSupply(ctx, identityName)
	})
}

func (ls *logService) Name(ctx context.Context, identityName string) result.Result[string] {
	return logged(ls, "Name", identityName, func() result.Result[string] {
		return ls.svc.Name(ctx, identityName)
	})
}

func (ls *logService) Symbol(ctx context.Context, identityName string) result.Result[string] {
	return logged(ls, "Symbol", identityName, func() result.Result[string] {
		return ls.svc.Symbol(ctx, identityName)
	})
}

func (ls *logService) Decimals(ctx context.Context, identityName string) result.Result[int] {
	return logged(ls, "Decimals", identityName, func() result.Result[int] {
		return ls.svc.Decimals(ctx, identityName)
	})
}

func (ls *logService) TokenInfo(ctx context.Context, identityName string) result.Result[token.Info] {
	return logged(ls, "TokenInfo", identityName, func() result.Result[token.Info] {
		return ls.svc.TokenInfo(ctx, identityName)
	})
}
