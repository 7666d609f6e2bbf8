// Package cgtcalc computes UK capital gains tax for share transactions,
// applying the HMRC share identification rules. It is designed to be
// local-first and auditable: every figure on the report can be traced back
// to the calculation entries that produced it.
//
// The core functionalities include:
//   - Transaction Ingestion: Reading broker transactions from a generic CSV
//     interchange format, sorting them, and validating their consistency
//     (cash balances, held quantities, stated amounts).
//   - Currency Conversion: Converting every amount to pound sterling using
//     the official HMRC monthly exchange rates.
//   - Share Matching: Matching each disposal against acquisitions under the
//     same day rule, the 30 day bed and breakfast rule, and the Section 104
//     holding, in that order.
//   - Reporting: Aggregating the tax year's disposals into the figures of
//     the self assessment capital gains summary, with the full calculation
//     trail and the dividend and interest income of the year.
//
// This package serves as the foundational logic for the `cgt` command-line
// tool, ensuring that all operations are consistent and reproducible.
package cgtcalc
