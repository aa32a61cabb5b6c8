package lifecycle

import "github.com/trabamex/mir-bff-go/internal/domain"

func OrderSequence() []domain.OrderStatus {
	return append([]domain.OrderStatus(nil), orderSequence...)
}
