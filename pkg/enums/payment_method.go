package enums

// PaymentMethod names how an order is settled. Only SSLCommerz drives the
// hosted payment flow; the other values label offline settlement.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "Card"
	PaymentMethodSSLCommerz     PaymentMethod = "SSLCommerz"
	PaymentMethodCashOnDelivery PaymentMethod = "CashOnDelivery"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodSSLCommerz, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}
