// File path: internal/amort/calculator.go

// Package amort implements the amortization calculator behind the
// /v1/amortization endpoint: standard fixed-rate payment math, optional
// taxes-and-costs breakdown, and an extra-payment schedule that reports
// months and interest saved.
package amort

import (
	"fmt"
	"math"
	"time"
)

// CostType selects how an auxiliary cost is expressed.
type CostType string

const (
	CostDollar  CostType = "dollar"
	CostPercent CostType = "percent"
)

// Inputs describes one calculation request. Percent-typed costs are annual
// percentages of the home price, except PMI which is a percentage of the
// loan amount.
type Inputs struct {
	HomePrice       float64  `json:"homePrice"`
	DownPayment     float64  `json:"downPayment"`
	DownPaymentType CostType `json:"downPaymentType"`
	LoanTermYears   int      `json:"loanTerm"`
	InterestRate    float64  `json:"interestRate"`
	StartMonth      int      `json:"startMonth"`
	StartYear       int      `json:"startYear"`

	IncludeTaxesCosts bool     `json:"includeTaxesCosts"`
	PropertyTax       float64  `json:"propertyTax"`
	PropertyTaxType   CostType `json:"propertyTaxType"`
	HomeInsurance     float64  `json:"homeInsurance"`
	HomeInsuranceType CostType `json:"homeInsuranceType"`
	PMIInsurance      float64  `json:"pmiInsurance"`
	PMIInsuranceType  CostType `json:"pmiInsuranceType"`
	HOAFee            float64  `json:"hoaFee"`
	HOAFeeType        CostType `json:"hoaFeeType"`
	OtherCosts        float64  `json:"otherCosts"`
	OtherCostsType    CostType `json:"otherCostsType"`

	ExtraMonthlyPay      float64 `json:"extraMonthlyPay"`
	ExtraMonthlyPayMonth int     `json:"extraMonthlyPayMonth"`
	ExtraMonthlyPayYear  int     `json:"extraMonthlyPayYear"`
	ExtraYearlyPay       float64 `json:"extraYearlyPay"`
	ExtraYearlyPayMonth  int     `json:"extraYearlyPayMonth"`
	ExtraYearlyPayYear   int     `json:"extraYearlyPayYear"`
	ExtraOneTimePay      float64 `json:"extraOneTimePay"`
	ExtraOneTimePayMonth int     `json:"extraOneTimePayMonth"`
	ExtraOneTimePayYear  int     `json:"extraOneTimePayYear"`
}

// Results is the calculator response. The WithExtras fields mirror the base
// figures recomputed against the extra-payment schedule.
type Results struct {
	MonthlyPayment          float64 `json:"monthlyPayment"`
	TotalMonthlyPayment     float64 `json:"totalMonthlyPayment"`
	TotalInterest           float64 `json:"totalInterest"`
	TotalPayments           float64 `json:"totalPayments"`
	LoanAmount              float64 `json:"loanAmount"`
	DownPaymentAmount       float64 `json:"downPaymentAmount"`
	PropertyTaxMonthly      float64 `json:"propertyTaxMonthly"`
	HomeInsuranceMonthly    float64 `json:"homeInsuranceMonthly"`
	PMIMonthly              float64 `json:"pmiMonthly"`
	HOAMonthly              float64 `json:"hoaMonthly"`
	OtherCostsMonthly       float64 `json:"otherCostsMonthly"`
	PayoffDate              string  `json:"payoffDate"`
	TotalInterestWithExtras float64 `json:"totalInterestWithExtras"`
	TotalPaymentsWithExtras float64 `json:"totalPaymentsWithExtras"`
	PayoffDateWithExtras    string  `json:"payoffDateWithExtras"`
	MonthsSaved             int     `json:"monthsSaved"`
	InterestSaved           float64 `json:"interestSaved"`
}

// Validate rejects inputs the math cannot handle.
func (in Inputs) Validate() error {
	if in.HomePrice <= 0 {
		return fmt.Errorf("home price must be positive")
	}
	if in.LoanTermYears <= 0 {
		return fmt.Errorf("loan term must be positive")
	}
	if in.InterestRate < 0 {
		return fmt.Errorf("interest rate cannot be negative")
	}
	if in.StartMonth < 1 || in.StartMonth > 12 {
		return fmt.Errorf("start month must be between 1 and 12")
	}
	if in.StartYear < 1900 {
		return fmt.Errorf("start year out of range")
	}
	return nil
}

// MonthlyPayment returns the fixed monthly principal-and-interest payment
// for a loan. A zero rate degenerates to straight-line repayment.
func MonthlyPayment(principal, annualRate float64, years int) float64 {
	if annualRate == 0 {
		return principal / float64(years*12)
	}
	monthlyRate := annualRate / 100 / 12
	n := float64(years * 12)
	growth := math.Pow(1+monthlyRate, n)
	return principal * (monthlyRate * growth) / (growth - 1)
}

// PayoffDate projects the payoff month by adding the loan term in mean
// calendar days to the start date, formatted like "Jan. 2055".
func PayoffDate(startMonth, startYear, termYears int) string {
	if startMonth < 1 || startMonth > 12 {
		return "Invalid Date"
	}
	start := time.Date(startYear, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	payoff := start.Add(time.Duration(float64(termYears) * 365.25 * 24 * float64(time.Hour)))
	return formatMonthYear(payoff)
}

func formatMonthYear(t time.Time) string {
	return fmt.Sprintf("%s. %d", t.Format("Jan"), t.Year())
}

// Calculate runs the full calculation.
func Calculate(in Inputs) (Results, error) {
	if err := in.Validate(); err != nil {
		return Results{}, err
	}

	downPayment := in.DownPayment
	if in.DownPaymentType == CostPercent {
		downPayment = in.HomePrice * in.DownPayment / 100
	}
	loanAmount := in.HomePrice - downPayment

	var monthlyPayment, totalInterest, totalPayments float64
	if loanAmount > 0 {
		monthlyPayment = MonthlyPayment(loanAmount, in.InterestRate, in.LoanTermYears)
		totalPayments = monthlyPayment * float64(in.LoanTermYears*12)
		totalInterest = totalPayments - loanAmount
	}

	var taxMonthly, insuranceMonthly, pmiMonthly, hoaMonthly, otherMonthly float64
	if in.IncludeTaxesCosts {
		taxMonthly = annualCost(in.PropertyTax, in.PropertyTaxType, in.HomePrice)
		insuranceMonthly = annualCost(in.HomeInsurance, in.HomeInsuranceType, in.HomePrice)
		otherMonthly = annualCost(in.OtherCosts, in.OtherCostsType, in.HomePrice)
		// PMI is rated on the loan amount; dollar PMI and HOA are
		// already monthly figures.
		if in.PMIInsuranceType == CostPercent {
			pmiMonthly = loanAmount * in.PMIInsurance / 100 / 12
		} else {
			pmiMonthly = in.PMIInsurance
		}
		if in.HOAFeeType == CostPercent {
			hoaMonthly = in.HomePrice * in.HOAFee / 100 / 12
		} else {
			hoaMonthly = in.HOAFee
		}
	}

	totalMonthly := monthlyPayment + taxMonthly + insuranceMonthly + pmiMonthly + hoaMonthly + otherMonthly
	payoffDate := PayoffDate(in.StartMonth, in.StartYear, in.LoanTermYears)

	res := Results{
		MonthlyPayment:       round2(monthlyPayment),
		TotalMonthlyPayment:  round2(totalMonthly),
		TotalInterest:        round2(totalInterest),
		TotalPayments:        round2(totalPayments),
		LoanAmount:           round2(loanAmount),
		DownPaymentAmount:    round2(downPayment),
		PropertyTaxMonthly:   round2(taxMonthly),
		HomeInsuranceMonthly: round2(insuranceMonthly),
		PMIMonthly:           round2(pmiMonthly),
		HOAMonthly:           round2(hoaMonthly),
		OtherCostsMonthly:    round2(otherMonthly),
		PayoffDate:           payoffDate,
	}

	hasExtras := in.ExtraMonthlyPay > 0 || in.ExtraYearlyPay > 0 || in.ExtraOneTimePay > 0
	if hasExtras && loanAmount > 0 {
		sched := amortizeWithExtras(loanAmount, in)
		res.TotalInterestWithExtras = round2(sched.totalInterest)
		res.TotalPaymentsWithExtras = round2(sched.totalPaid)
		res.PayoffDateWithExtras = sched.payoffDate
		res.MonthsSaved = in.LoanTermYears*12 - sched.months
		res.InterestSaved = round2(totalInterest - sched.totalInterest)
	} else {
		res.TotalInterestWithExtras = res.TotalInterest
		res.TotalPaymentsWithExtras = round2(totalPayments + (taxMonthly+insuranceMonthly+pmiMonthly+hoaMonthly+otherMonthly)*float64(in.LoanTermYears*12))
		res.PayoffDateWithExtras = payoffDate
	}
	return res, nil
}

func annualCost(value float64, kind CostType, base float64) float64 {
	if kind == CostPercent {
		return base * value / 100 / 12
	}
	return value / 12
}

type schedule struct {
	totalInterest float64
	totalPaid     float64
	payoffDate    string
	months        int
}

// amortizeWithExtras walks the payment schedule month by month, applying
// recurring and one-time extra principal payments. Capped at twice the loan
// term in case an input combination would never converge.
func amortizeWithExtras(principal float64, in Inputs) schedule {
	if in.InterestRate == 0 || principal <= 0 {
		return schedule{payoffDate: fmt.Sprintf("%d", in.StartYear+in.LoanTermYears)}
	}

	monthlyRate := in.InterestRate / 100 / 12
	basePayment := MonthlyPayment(principal, in.InterestRate, in.LoanTermYears)

	balance := principal
	current := time.Date(in.StartYear, time.Month(in.StartMonth), 1, 0, 0, 0, 0, time.UTC)
	monthlyStart := time.Date(in.ExtraMonthlyPayYear, time.Month(in.ExtraMonthlyPayMonth), 1, 0, 0, 0, 0, time.UTC)

	var sched schedule
	maxPayments := in.LoanTermYears * 12 * 2
	for balance > 0.01 && sched.months < maxPayments {
		sched.months++

		interest := balance * monthlyRate
		principalPart := basePayment - interest

		var extra float64
		if in.ExtraMonthlyPay > 0 && !current.Before(monthlyStart) {
			extra += in.ExtraMonthlyPay
		}
		if in.ExtraYearlyPay > 0 &&
			current.Month() == time.Month(in.ExtraYearlyPayMonth) &&
			current.Year() >= in.ExtraYearlyPayYear {
			extra += in.ExtraYearlyPay
		}
		if in.ExtraOneTimePay > 0 &&
			current.Month() == time.Month(in.ExtraOneTimePayMonth) &&
			current.Year() == in.ExtraOneTimePayYear {
			extra += in.ExtraOneTimePay
		}

		paidPrincipal := math.Min(principalPart+extra, balance)
		balance -= paidPrincipal
		sched.totalInterest += interest
		sched.totalPaid += interest + paidPrincipal

		current = current.AddDate(0, 1, 0)
	}
	sched.payoffDate = formatMonthYear(current)
	return sched
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
