// Copyright 2024 lingstore authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package relational

import (
	"fmt"
	"strings"

	"github.com/lingstore/lingstore/internal/backends"
	"github.com/lingstore/lingstore/internal/entities"
)

// Column names shared by all relations.
const (
	idColumn       = "id"
	languageColumn = "language"
)

// Aliases of the joined relations.
const (
	baseAlias     = "b"
	languageAlias = "l"
)

// createStatements returns the idempotent DDL for the type's relations.
//
// Attribute columns are stored as TEXT; the language relation is keyed by
// (id, language) and follows the base row on delete.
func createStatements(d dialect, desc *entities.Descriptor) []string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (%s %s", d.quote(desc.Name()), d.quote(idColumn), d.idColumn())

	for _, f := range desc.Fields() {
		fmt.Fprintf(&sb, ", %s TEXT", d.quote(f))
	}

	sb.WriteString(")")

	res := []string{sb.String()}

	if !desc.HasLanguageFields() {
		return res
	}

	sb.Reset()

	fmt.Fprintf(
		&sb, "CREATE TABLE IF NOT EXISTS %s (%s %s, %s VARCHAR(35) NOT NULL",
		d.quote(desc.LanguageName()), d.quote(idColumn), d.refIDColumn(), d.quote(languageColumn),
	)

	for _, f := range desc.LanguageFields() {
		fmt.Fprintf(&sb, ", %s TEXT", d.quote(f))
	}

	fmt.Fprintf(
		&sb, ", PRIMARY KEY (%[1]s, %[2]s), FOREIGN KEY (%[1]s) REFERENCES %[3]s (%[1]s) ON DELETE CASCADE)",
		d.quote(idColumn), d.quote(languageColumn), d.quote(desc.Name()),
	)

	return append(res, sb.String())
}

// prepareSelectClause returns the SELECT clause reconstructing entities of the given type.
//
// Without a language, it selects the identifier and base fields from the base relation.
// With a language, the language relation is joined on the identifier,
// and the locale tag and translatable fields are selected too.
func prepareSelectClause(d dialect, desc *entities.Descriptor, withLanguage bool) string {
	var sb strings.Builder

	sb.WriteString("SELECT ")

	if !withLanguage {
		sb.WriteString(d.quote(idColumn))

		for _, f := range desc.Fields() {
			sb.WriteString(", " + d.quote(f))
		}

		fmt.Fprintf(&sb, " FROM %s", d.quote(desc.Name()))

		return sb.String()
	}

	fmt.Fprintf(&sb, "%s.%s", baseAlias, d.quote(idColumn))

	for _, f := range desc.Fields() {
		fmt.Fprintf(&sb, ", %s.%s", baseAlias, d.quote(f))
	}

	fmt.Fprintf(&sb, ", %s.%s", languageAlias, d.quote(languageColumn))

	for _, f := range desc.LanguageFields() {
		fmt.Fprintf(&sb, ", %s.%s", languageAlias, d.quote(f))
	}

	fmt.Fprintf(
		&sb, " FROM %s AS %s INNER JOIN %s AS %s ON %s.%s = %s.%s",
		d.quote(desc.Name()), baseAlias,
		d.quote(desc.LanguageName()), languageAlias,
		languageAlias, d.quote(idColumn), baseAlias, d.quote(idColumn),
	)

	return sb.String()
}

// qualifyColumn qualifies a validated field name for a possibly joined query.
func qualifyColumn(d dialect, desc *entities.Descriptor, field string, withLanguage bool) string {
	if !withLanguage {
		return d.quote(field)
	}

	if field == languageColumn || desc.IsLanguageField(field) {
		return languageAlias + "." + d.quote(field)
	}

	return baseAlias + "." + d.quote(field)
}

// prepareOrderByClause returns the ORDER BY clause for the given parameters.
//
// Ordering is applied only when the direction is syntactically valid;
// any other value, including absence, discards orderBy entirely.
func prepareOrderByClause(d dialect, desc *entities.Descriptor, orderBy, orderDirection string, withLanguage bool) string {
	if orderBy == "" || !backends.ValidOrderDirection(orderDirection) {
		return ""
	}

	return fmt.Sprintf(" ORDER BY %s %s", qualifyColumn(d, desc, orderBy, withLanguage), strings.ToUpper(orderDirection))
}

// clampLimits normalizes the pagination parameters.
//
// LimitFrom defaults to 0; limitTo defaults to, and is capped at, backends.MaxSearchLimit.
func clampLimits(limitFrom, limitTo *int64) (offset, limit int64) {
	if limitFrom != nil && *limitFrom > 0 {
		offset = *limitFrom
	}

	limit = backends.MaxSearchLimit
	if limitTo != nil && *limitTo > 0 && *limitTo < backends.MaxSearchLimit {
		limit = *limitTo
	}

	return
}

// upsertBaseQuery returns the insert-or-update statement for the base relation.
//
// With an identifier, the statement updates the existing row on conflict.
// Without one, it is a plain insert; for engines with RETURNING support,
// the generated identifier is selected back.
func upsertBaseQuery(d dialect, desc *entities.Descriptor, data map[string]any, id *int64) (string, []any) {
	cols := make([]string, 0, len(desc.Fields())+1)
	args := make([]any, 0, len(desc.Fields())+1)

	if id != nil {
		cols = append(cols, idColumn)
		args = append(args, *id)
	}

	for _, f := range desc.Fields() {
		cols = append(cols, f)
		args = append(args, data[f])
	}

	var sb strings.Builder

	writeInsert(&sb, d, desc.Name(), cols)

	if id != nil {
		writeConflictClause(&sb, d, []string{idColumn}, desc.Fields())
	}

	if id == nil && d.returningID() {
		fmt.Fprintf(&sb, " RETURNING %s", d.quote(idColumn))
	}

	return sb.String(), args
}

// upsertLanguageQuery returns the insert-or-update statement for the language relation.
func upsertLanguageQuery(d dialect, desc *entities.Descriptor, id int64, language string, data map[string]any) (string, []any) {
	cols := make([]string, 0, len(desc.LanguageFields())+2)
	args := make([]any, 0, len(desc.LanguageFields())+2)

	cols = append(cols, idColumn, languageColumn)
	args = append(args, id, language)

	for _, f := range desc.LanguageFields() {
		cols = append(cols, f)
		args = append(args, data[f])
	}

	var sb strings.Builder

	writeInsert(&sb, d, desc.LanguageName(), cols)
	writeConflictClause(&sb, d, []string{idColumn, languageColumn}, desc.LanguageFields())

	return sb.String(), args
}

// writeInsert writes "INSERT INTO rel (cols...) VALUES (placeholders...)".
func writeInsert(sb *strings.Builder, d dialect, rel string, cols []string) {
	fmt.Fprintf(sb, "INSERT INTO %s (", d.quote(rel))

	for i, c := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(d.quote(c))
	}

	sb.WriteString(") VALUES (")

	for i := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(d.placeholder(i + 1))
	}

	sb.WriteString(")")
}

// writeConflictClause writes the engine's insert-or-update-on-conflict clause
// for the given key and updated columns.
func writeConflictClause(sb *strings.Builder, d dialect, key, update []string) {
	if d == dialectMySQL {
		sb.WriteString(" ON DUPLICATE KEY UPDATE ")

		for i, c := range update {
			if i > 0 {
				sb.WriteString(", ")
			}

			fmt.Fprintf(sb, "%[1]s = VALUES(%[1]s)", d.quote(c))
		}

		return
	}

	sb.WriteString(" ON CONFLICT (")

	for i, c := range key {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(d.quote(c))
	}

	sb.WriteString(") DO UPDATE SET ")

	for i, c := range update {
		if i > 0 {
			sb.WriteString(", ")
		}

		fmt.Fprintf(sb, "%s = excluded.%s", d.quote(c), d.quote(c))
	}
}

// deleteBaseQuery returns the statement deleting at most one base row by identifier.
func deleteBaseQuery(d dialect, desc *entities.Descriptor) string {
	rel := d.quote(desc.Name())
	id := d.quote(idColumn)

	if d == dialectMySQL {
		return fmt.Sprintf("DELETE FROM %s WHERE %s = ? LIMIT 1", rel, id)
	}

	return fmt.Sprintf(
		"DELETE FROM %[1]s WHERE %[2]s IN (SELECT %[2]s FROM %[1]s WHERE %[2]s = %[3]s LIMIT 1)",
		rel, id, d.placeholder(1),
	)
}

// deleteLanguageQuery returns the statement deleting at most one (id, language) row.
func deleteLanguageQuery(d dialect, desc *entities.Descriptor) string {
	rel := d.quote(desc.LanguageName())
	id := d.quote(idColumn)
	lang := d.quote(languageColumn)

	if d == dialectMySQL {
		return fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ? LIMIT 1", rel, id, lang)
	}

	return fmt.Sprintf(
		"DELETE FROM %[1]s WHERE (%[2]s, %[3]s) IN (SELECT %[2]s, %[3]s FROM %[1]s WHERE %[2]s = %[4]s AND %[3]s = %[5]s LIMIT 1)",
		rel, id, lang, d.placeholder(1), d.placeholder(2),
	)
}

// otherLanguagesQuery returns the statement selecting the locale tags
// (and, optionally, one declared translatable field) of all variants
// of an entity except the given language.
func otherLanguagesQuery(d dialect, desc *entities.Descriptor, nameField string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "SELECT %s", d.quote(languageColumn))

	if nameField != "" {
		fmt.Fprintf(&sb, ", %s", d.quote(nameField))
	}

	fmt.Fprintf(
		&sb, " FROM %s WHERE %s = %s AND %s <> %s",
		d.quote(desc.LanguageName()),
		d.quote(idColumn), d.placeholder(1),
		d.quote(languageColumn), d.placeholder(2),
	)

	return sb.String()
}
