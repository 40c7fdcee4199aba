package lending

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/terraloan/backend/internal/domain/shared"
)

// AmortizationMode selects how the monthly payment is computed. The
// mode is always chosen explicitly by the caller; it is never inferred
// from the loan data.
type AmortizationMode string

const (
	// ModeAmortizing computes a fixed annuity payment over the term.
	// The interest portion of every installment is flat on the
	// original principal (principal * annual rate / term months).
	ModeAmortizing AmortizationMode = "AMORTIZING"

	// ModeFlatInterestOnly charges interest only: every installment is
	// principal * annual rate / 12, with no principal reduction.
	ModeFlatInterestOnly AmortizationMode = "FLAT_INTEREST_ONLY"
)

// IsValid checks if the mode is a known value
func (m AmortizationMode) IsValid() bool {
	return m == ModeAmortizing || m == ModeFlatInterestOnly
}

// ScheduleLine is one computed installment
type ScheduleLine struct {
	Sequence  int
	DueDate   time.Time
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Total     decimal.Decimal
}

// Schedule is the computed payment plan for a loan
type Schedule struct {
	Mode           AmortizationMode
	MonthlyPayment decimal.Decimal
	Lines          []ScheduleLine
}

// TotalPayable sums the totals of all lines
func (s Schedule) TotalPayable() decimal.Decimal {
	sum := decimal.Zero
	for _, line := range s.Lines {
		sum = sum.Add(line.Total)
	}
	return sum
}

// ComputeSchedule computes the monthly payment and full installment
// plan for the given terms. It is a pure function: same inputs, same
// schedule.
//
// Due dates are contractDate plus i calendar months (Go's AddDate
// normalization, so Jan 31 + 1 month lands on Mar 2/3). Amounts are
// rounded to 2 decimal places per line.
func ComputeSchedule(
	principal decimal.Decimal,
	annualRatePercent decimal.Decimal,
	termMonths int,
	contractDate time.Time,
	mode AmortizationMode,
) (Schedule, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return Schedule{}, shared.NewDomainError("INVALID_AMOUNT", "Principal must be positive")
	}
	if annualRatePercent.IsNegative() {
		return Schedule{}, shared.NewDomainError("INVALID_RATE", "Interest rate cannot be negative")
	}
	if termMonths <= 0 {
		return Schedule{}, shared.NewDomainError("INVALID_TERM", "Term must be at least one month")
	}
	if contractDate.IsZero() {
		return Schedule{}, shared.NewDomainError("INVALID_CONTRACT_DATE", "Contract date is required")
	}
	if !mode.IsValid() {
		return Schedule{}, shared.NewDomainError("INVALID_MODE", "Amortization mode is not valid")
	}

	payment := MonthlyPayment(principal, annualRatePercent, termMonths, mode)

	lines := make([]ScheduleLine, 0, termMonths)
	switch mode {
	case ModeFlatInterestOnly:
		for i := 1; i <= termMonths; i++ {
			lines = append(lines, ScheduleLine{
				Sequence:  i,
				DueDate:   contractDate.AddDate(0, i, 0),
				Principal: decimal.Zero,
				Interest:  payment,
				Total:     payment,
			})
		}
	case ModeAmortizing:
		// Interest is flat on the original principal for every line
		interest := principal.Mul(annualRatePercent).
			Div(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(termMonths))).
			Round(2)
		for i := 1; i <= termMonths; i++ {
			lines = append(lines, ScheduleLine{
				Sequence:  i,
				DueDate:   contractDate.AddDate(0, i, 0),
				Principal: payment.Sub(interest),
				Interest:  interest,
				Total:     payment,
			})
		}
	}

	return Schedule{
		Mode:           mode,
		MonthlyPayment: payment,
		Lines:          lines,
	}, nil
}

// MonthlyPayment computes the fixed monthly payment for the given
// terms, rounded to 2 decimal places.
func MonthlyPayment(
	principal decimal.Decimal,
	annualRatePercent decimal.Decimal,
	termMonths int,
	mode AmortizationMode,
) decimal.Decimal {
	if mode == ModeFlatInterestOnly {
		return principal.Mul(annualRatePercent).
			Div(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(12)).
			Round(2)
	}

	if annualRatePercent.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(termMonths))).Round(2)
	}

	// Standard annuity formula: P*r / (1 - (1+r)^-n) with r the
	// monthly rate. decimal has no fractional power, so the factor is
	// computed in float64 and rounded once at the boundary.
	p := principal.InexactFloat64()
	r := annualRatePercent.InexactFloat64() / 100 / 12
	n := float64(termMonths)
	payment := p * r / (1 - math.Pow(1+r, -n))

	return decimal.NewFromFloat(payment).Round(2)
}
