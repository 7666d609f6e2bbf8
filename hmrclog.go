package cgtcalc

// TransactionData aggregates the figures of all transactions of one kind
// (acquisition or disposal) for one security on one day: total quantity,
// total amount in the reporting currency, total fees.
type TransactionData struct {
	Quantity Quantity
	Amount   Money
	Fees     Money
}

// Add returns the element-wise sum of two aggregates.
func (d TransactionData) Add(o TransactionData) TransactionData {
	return TransactionData{
		Quantity: d.Quantity.Add(o.Quantity),
		Amount:   d.Amount.Add(o.Amount),
		Fees:     d.Fees.Add(o.Fees),
	}
}

// TransactionLog is an HMRC transaction log: aggregated per-day, per-symbol
// buckets keyed by day index. Three instances exist during a run:
// acquisitions, disposals, and the bed-and-breakfast claims recorded by the
// engine against future acquisition days.
type TransactionLog map[int]map[string]TransactionData

// Add accumulates data into the (dayIndex, symbol) bucket.
func (l TransactionLog) Add(dayIndex int, symbol string, data TransactionData) {
	if l[dayIndex] == nil {
		l[dayIndex] = make(map[string]TransactionData)
	}
	l[dayIndex][symbol] = l[dayIndex][symbol].Add(data)
}

// Get returns the bucket for (dayIndex, symbol) and whether it exists.
func (l TransactionLog) Get(dayIndex int, symbol string) (TransactionData, bool) {
	data, ok := l[dayIndex][symbol]
	return data, ok
}

// Has reports whether a bucket exists for (dayIndex, symbol).
func (l TransactionLog) Has(dayIndex int, symbol string) bool {
	_, ok := l[dayIndex][symbol]
	return ok
}
