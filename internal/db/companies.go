package db

import (
	"context"
	"fmt"
)

// InsertCompanyResult reports whether a CSV row was inserted or skipped as a
// duplicate of an existing normalized name.
type InsertCompanyResult string

const (
	InsertCompanyInserted InsertCompanyResult = "inserted"
	InsertCompanySkipped  InsertCompanyResult = "skipped"
)

// InsertCompanyFromCSV inserts a company row, skipping silently on a
// company_name_normalized conflict, per §4.G.
func (q *Queries) InsertCompanyFromCSV(ctx context.Context, row CompanyCSVRow, normalizedName string) (InsertCompanyResult, error) {
	query := `
		INSERT INTO companies (company_name, company_name_normalized, known_aliases, hq_country,
		                        description, type, geography, industry, suitability_tier,
		                        created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
		        NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NOW(), NOW())
		ON CONFLICT (company_name_normalized) DO NOTHING
	`
	res, err := q.db.ExecContext(ctx, query, row.CompanyName, normalizedName, row.KnownAliases,
		row.HQCountry, row.Description, row.Type, row.Geography, row.Industry, row.SuitabilityTier)
	if err != nil {
		return "", fmt.Errorf("inserting company %s: %w", row.CompanyName, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("checking inserted company %s: %w", row.CompanyName, err)
	}
	if affected == 0 {
		return InsertCompanySkipped, nil
	}
	return InsertCompanyInserted, nil
}

// ListAllCompanies returns the full company catalog, used to build the
// in-memory matcher index at the start of a refresh batch.
func (q *Queries) ListAllCompanies(ctx context.Context) ([]Company, error) {
	query := `
		SELECT id, company_name, company_name_normalized, known_aliases, hq_country,
		       description, type, geography, industry, suitability_tier, created_at, updated_at
		FROM companies
	`
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.CompanyName, &c.CompanyNameNormalized, &c.KnownAliases,
			&c.HQCountry, &c.Description, &c.Type, &c.Geography, &c.Industry,
			&c.SuitabilityTier, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning company row: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}
