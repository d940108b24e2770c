package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/services"
)

// Respond writes the outcome with the status its code maps to. Successful
// outcomes are 200 unless the handler passes an explicit status.
func Respond[T any](c *gin.Context, out services.Outcome[T], successStatus ...int) {
	if out.Success {
		status := http.StatusOK
		if len(successStatus) > 0 {
			status = successStatus[0]
		}
		c.JSON(status, out)
		return
	}
	c.JSON(statusFor(out.Code()), out)
}

// BadRequest reports a malformed request body or parameter without
// leaking a raw error shape different from the service envelope.
func BadRequest(c *gin.Context, message string, err error) {
	var out services.Outcome[any]
	if err != nil {
		out = services.Fail[any](domain.CodeInvalidOperation, message, err.Error())
	} else {
		out = services.Fail[any](domain.CodeInvalidOperation, message)
	}
	c.JSON(http.StatusBadRequest, out)
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeInsufficientFunds, domain.CodeAccountBlocked, domain.CodeInvalidOperation:
		return http.StatusUnprocessableEntity
	case domain.CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
