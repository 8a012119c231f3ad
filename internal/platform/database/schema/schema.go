// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns created by data/migrations.
//
// Repositories build their SQL from these definitions so a column rename
// touches one place.
package schema

import "strings"

// List joins column names for a SELECT or RETURNING clause.
func List(columns []string) string {
	return strings.Join(columns, ", ")
}
