package payment

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// ErrMalformedCallback возвращается, если вебхук провайдера не удалось разобрать.
// Вызывающая сторона обязана подтвердить приём вебхука независимо от этой ошибки.
var ErrMalformedCallback = errors.New("malformed callback payload")

// CallbackResult содержит разобранный результат вебхука провайдера.
// Поля квитанции заполнены только при успешном коде результата.
type CallbackResult struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string

	Amount        *int64
	ReceiptNumber string
	PaidAt        *time.Time
	PayerPhone    string
}

// Success сообщает, завершился ли платёж успешно.
func (r *CallbackResult) Success() bool {
	return r.ResultCode == 0
}

type callbackEnvelope struct {
	Body *struct {
		StkCallback *struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        *int   `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []metadataItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type metadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// ParseCallback защитно разбирает вложенный payload вебхука. Любой уровень вложенности
// может отсутствовать; ошибка означает нераспознанный payload, а не сбой обработки —
// вызывающая сторона всё равно отвечает провайдеру успехом.
func ParseCallback(raw []byte) (*CallbackResult, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Join(ErrMalformedCallback, err)
	}

	if env.Body == nil || env.Body.StkCallback == nil {
		return nil, ErrMalformedCallback
	}

	cb := env.Body.StkCallback
	if cb.CheckoutRequestID == "" || cb.ResultCode == nil {
		return nil, ErrMalformedCallback
	}

	result := &CallbackResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        *cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}

	if !result.Success() || cb.CallbackMetadata == nil {
		return result, nil
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if v, ok := itemInt64(item.Value); ok {
				result.Amount = &v
			}
		case "MpesaReceiptNumber":
			if s, ok := item.Value.(string); ok {
				result.ReceiptNumber = s
			}
		case "TransactionDate":
			if v, ok := itemInt64(item.Value); ok {
				if ts, err := time.Parse("20060102150405", strconv.FormatInt(v, 10)); err == nil {
					result.PaidAt = &ts
				}
			}
		case "PhoneNumber":
			if v, ok := itemInt64(item.Value); ok {
				result.PayerPhone = strconv.FormatInt(v, 10)
			} else if s, ok := item.Value.(string); ok {
				result.PayerPhone = s
			}
		}
	}

	return result, nil
}

// itemInt64 приводит значение элемента метаданных к int64. Провайдер присылает
// числа как JSON number, но встречаются и строковые значения.
func itemInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
