package market

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/dynasty-market/go/internal/bidding"
	"github.com/mcdev12/dynasty-market/go/internal/projection"
	"github.com/mcdev12/dynasty-market/go/internal/roster"
	"github.com/mcdev12/dynasty-market/go/internal/store"
	"github.com/mcdev12/dynasty-market/go/internal/waiver"
)

// codeOf maps market errors onto Connect codes
func codeOf(err error) connect.Code {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, bidding.ErrInvalidAmount):
		return connect.CodeInvalidArgument
	case errors.Is(err, waiver.ErrAlreadyClaimed):
		return connect.CodeAlreadyExists
	case errors.Is(err, bidding.ErrBidTooLow),
		errors.Is(err, bidding.ErrPlayerNotAvailable),
		errors.Is(err, waiver.ErrWaiverClosed),
		errors.Is(err, waiver.ErrOwnPlayer),
		errors.Is(err, waiver.ErrNotOnRoster),
		errors.Is(err, roster.ErrAlreadyRostered),
		errors.Is(err, roster.ErrNotRostered):
		return connect.CodeFailedPrecondition
	case errors.Is(err, roster.ErrRosterFull),
		errors.Is(err, roster.ErrCapExceeded),
		errors.Is(err, projection.ErrProjectedRosterFull),
		errors.Is(err, projection.ErrProjectedCapExceeded):
		return connect.CodeResourceExhausted
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	}
	return connect.CodeInternal
}

func toConnectError(err error) error {
	return connect.NewError(codeOf(err), err)
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid %s: %w", field, err))
	}
	return id, nil
}
