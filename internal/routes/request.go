package routes

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/wallet_ledger/internal/apierror"
	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

const (
	fieldWalletID       = "walletId"
	fieldLegacyWalletID = "valletId"
	fieldOperationType  = "operationType"
	fieldAmount         = "amount"
)

const maxIntegerDigits = 19

// decodeOperation parses and validates the body of POST /wallet. A body that
// is not a JSON object yields INVALID_JSON; the first field with a wrong type
// or format yields INVALID_VALUE; missing fields and range violations are
// collected into a single VALIDATION_ERROR.
func decodeOperation(body []byte) (wallet.Operation, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return wallet.Operation{}, apierror.New(apierror.InvalidJSON{})
	}

	var (
		op          wallet.Operation
		fieldErrors []apierror.FieldError
	)

	if v, ok := lookup(raw, fieldWalletID, fieldLegacyWalletID); ok {
		s, err := jsonString(v)
		if err == nil {
			op.WalletID, err = uuid.Parse(s)
		}
		if err != nil {
			return wallet.Operation{}, invalidField(fieldWalletID, v, "UUID", nil)
		}
	} else {
		fieldErrors = append(fieldErrors, apierror.FieldError{Field: fieldWalletID, Message: "walletId is required"})
	}

	if v, ok := lookup(raw, fieldOperationType); ok {
		s, err := jsonString(v)
		op.Type = wallet.OperationType(s)
		if err != nil || !op.Type.Valid() {
			return wallet.Operation{}, invalidField(fieldOperationType, v, "OperationType", operationTypeNames())
		}
	} else {
		fieldErrors = append(fieldErrors, apierror.FieldError{Field: fieldOperationType, Message: "operationType is required"})
	}

	if v, ok := lookup(raw, fieldAmount); ok {
		if err := op.Amount.UnmarshalJSON(v); err != nil {
			return wallet.Operation{}, invalidField(fieldAmount, v, "decimal", nil)
		}
		var amountErrors []apierror.FieldError
		op.Amount, amountErrors = checkAmount(op.Amount)
		fieldErrors = append(fieldErrors, amountErrors...)
	} else {
		fieldErrors = append(fieldErrors, apierror.FieldError{Field: fieldAmount, Message: "amount is required"})
	}

	if len(fieldErrors) > 0 {
		return wallet.Operation{}, apierror.New(apierror.Validation{FieldErrors: fieldErrors})
	}
	return op, nil
}

// checkAmount validates amount from its coefficient and exponent alone.
// Comparing against other decimals rescales both operands, which for a
// literal like 1e-20000000 means building a number with millions of digits.
// The returned amount has trailing zeros stripped.
func checkAmount(amount decimal.Decimal) (decimal.Decimal, []apierror.FieldError) {
	coef := amount.Coefficient()
	digits := new(big.Int).Abs(coef).String()
	significant := strings.TrimRight(digits, "0")
	if significant == "" {
		return amount, []apierror.FieldError{{Field: fieldAmount, Message: "amount must be greater than 0"}}
	}

	exp := int64(amount.Exponent()) + int64(len(digits)-len(significant))
	// magnitude is the count of integer digits; <= 0 for values below 1.
	magnitude := int64(len(significant)) + exp

	var errs []apierror.FieldError
	if coef.Sign() < 0 || magnitude <= -2 {
		errs = append(errs, apierror.FieldError{Field: fieldAmount, Message: "amount must be greater than 0"})
	}
	if exp < -2 {
		errs = append(errs, apierror.FieldError{Field: fieldAmount, Message: "amount: at most 2 digits after the decimal point"})
	}
	if magnitude > maxIntegerDigits {
		errs = append(errs, apierror.FieldError{Field: fieldAmount, Message: "amount: at most 19 digits before the decimal point"})
	}
	if len(errs) > 0 {
		return amount, errs
	}

	stripped, _ := new(big.Int).SetString(significant, 10)
	if coef.Sign() < 0 {
		stripped.Neg(stripped)
	}
	return decimal.NewFromBigInt(stripped, int32(exp)), nil
}

// lookup returns the first non-null value among keys.
func lookup(raw map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

func jsonString(v json.RawMessage) (string, error) {
	var s string
	err := json.Unmarshal(v, &s)
	return s, err
}

// invalidField reports the offending value as the caller sent it, unquoted
// when it was a JSON string.
func invalidField(field string, v json.RawMessage, expectedType string, allowed []string) error {
	value, err := jsonString(v)
	if err != nil {
		value = string(bytes.TrimSpace(v))
	}
	return apierror.New(apierror.InvalidValue{
		Field:         field,
		Value:         value,
		ExpectedType:  expectedType,
		AllowedValues: allowed,
	})
}

func operationTypeNames() []string {
	types := wallet.OperationTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}
