// Package sales produces the admin-side inventory report: which products are
// overstocked and may deserve a discount, and which are about to run out.
// Discounts come from fixed business rules, never from a model.
package sales

// Discount reasons shown to shop admins.
const (
	reasonNearOut = "Tồn kho bằng hoặc thấp hơn ngưỡng cho phép, sản phẩm sắp hoặc đã hết hàng nên không áp dụng giảm giá."
	reasonTriple  = "Tồn kho gấp nhiều lần ngưỡng chuẩn, hàng quay vòng rất chậm nên cần giảm giá để giải phóng tồn kho."
	reasonDouble  = "Tồn kho cao hơn mức an toàn trong thời gian dài, cần hỗ trợ giá để tăng tốc độ bán ra."
	reasonAbove   = "Tồn kho vượt ngưỡng chuẩn, áp dụng giảm nhẹ để kích cầu và cải thiện tốc độ quay vòng."
	reasonHealthy = "Tồn kho đang ở mức an toàn, không cần áp dụng giảm giá."
)

// Decision is a recommended discount with its justification.
type Decision struct {
	Percent int
	Reason  string
}

// DecideDiscount applies the stock rules: nothing at or below low; otherwise
// 10%, 8% or 5% once stock reaches three, two or one times high. high must
// be positive.
func DecideDiscount(qty, high, low int) Decision {
	if qty <= low {
		return Decision{0, reasonNearOut}
	}
	ratio := float64(qty) / float64(high)
	switch {
	case ratio >= 3:
		return Decision{10, reasonTriple}
	case ratio >= 2:
		return Decision{8, reasonDouble}
	case ratio >= 1:
		return Decision{5, reasonAbove}
	default:
		return Decision{0, reasonHealthy}
	}
}
