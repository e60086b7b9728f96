// Package transport serves swap route comparisons over HTTP.
package transport

import "github.com/gaslens/gaslens/internal/paths/domain"

// PathResponse is a ranked route with its display savings label.
type PathResponse struct {
	domain.SwapPath
	SavingsLabel string `json:"savingsLabel"`
}

// FromDomain converts ranked routes to their response form.
func FromDomain(paths []domain.SwapPath) []PathResponse {
	out := make([]PathResponse, len(paths))
	for i, p := range paths {
		out[i] = PathResponse{
			SwapPath:     p,
			SavingsLabel: domain.FormatSavings(p.SavingsUsd, p.SavingsPercent),
		}
	}
	return out
}
