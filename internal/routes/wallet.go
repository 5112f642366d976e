package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_ledger/internal/apierror"
	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

// RegisterWalletRoutes wires the operation and balance endpoints. limiter,
// when non-nil, guards the mutating route only.
func RegisterWalletRoutes(r fiber.Router, svc *wallet.Service, limiter fiber.Handler) {
	h := &walletHandler{svc: svc}
	if limiter != nil {
		r.Post("/wallet", limiter, h.operate)
	} else {
		r.Post("/wallet", h.operate)
	}
	r.Get("/wallets/:walletId", h.balance)
}

type walletHandler struct {
	svc *wallet.Service
}

// amount renders as a JSON number with exactly two fraction digits.
type amount decimal.Decimal

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(2)), nil
}

type balanceResponse struct {
	WalletID uuid.UUID `json:"walletId"`
	Balance  amount    `json:"balance"`
}

func toBalanceResponse(b wallet.Balance) balanceResponse {
	return balanceResponse{WalletID: b.WalletID, Balance: amount(b.Amount)}
}

func (h *walletHandler) operate(c *fiber.Ctx) error {
	op, err := decodeOperation(c.Body())
	if err != nil {
		return err
	}
	bal, err := h.svc.Operate(c.UserContext(), op)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toBalanceResponse(bal))
}

func (h *walletHandler) balance(c *fiber.Ctx) error {
	raw := utils.CopyString(c.Params("walletId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return apierror.New(apierror.InvalidValue{Parameter: "walletId", Value: raw, ExpectedType: "UUID"})
	}
	bal, err := h.svc.GetBalance(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toBalanceResponse(bal))
}
