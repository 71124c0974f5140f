// Package domain models daily station weather observations and their
// derived quality and summary statistics.
//
// # Source Data
//
// Observations arrive as plain-text files, one file per station, named
// after the station identifier (e.g. USC00110072.txt). Each line is one
// daily record with four tab-separated fields:
//
//	DATE \t MAXTEMP \t MINTEMP \t PRECIP
//
// DATE is YYYYMMDD. The numeric fields use tenths encoding: the physical
// quantity multiplied by 10 and stored as an integer, so 289 means
// 28.9 °C and 145 means 14.5 mm. Dividing precipitation by 10 twice
// yields centimeters.
//
// # Sentinel Values
//
// The literal -9999 marks a missing measurement. It is distinct from
// zero and decodes to a nil raw and clean value, never to a number.
//
// # Quality Grading
//
// Every decoded observation is graded by [ScoreQuality]: a continuous
// score in [0,1] built from missing-value and outlier penalties plus a
// max<min consistency check, mapped onto four ordered tiers
// (excellent, good, fair, poor). The scorer is pure and total — any
// combination of nil and non-nil inputs produces a grade.
//
// # Aggregation
//
// [Aggregate] recomputes materialized summaries over fact metrics at
// annual, monthly, and quarterly granularity, where quarter =
// (month-1)/3 + 1. Means ignore nil values; a group whose rows are all
// nil for a metric yields a nil metric, not zero.
package domain
