// Package dedup decides which parsed bank transactions were already imported.
package dedup

import "stewardship/internal/giving/models"

// Result splits candidates by whether their key was seen before.
type Result struct {
	New        []models.BankTransaction
	Duplicates []models.BankTransaction
}

// Filter keeps candidates whose (date, reference, amount) key is absent from
// alreadyImported. A key repeated within candidates is kept once; later
// occurrences count as duplicates, so two genuine identical payments on the
// same day collapse into one.
func Filter(candidates []models.BankTransaction, alreadyImported []models.TransactionKey) Result {
	seen := make(map[models.TransactionKey]struct{}, len(alreadyImported)+len(candidates))
	for _, k := range alreadyImported {
		seen[k] = struct{}{}
	}

	var out Result
	for _, c := range candidates {
		key := c.Key()
		if _, dup := seen[key]; dup {
			out.Duplicates = append(out.Duplicates, c)
			continue
		}
		seen[key] = struct{}{}
		out.New = append(out.New, c)
	}
	return out
}
