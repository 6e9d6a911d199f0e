package pipeline

import (
	"fmt"

	"github.com/aluiziolira/go-scrape-consultations/models"
)

func strPtr(s string) *string { return &s }

func newStub(n int) *models.Stub {
	stub, err := models.NewStub(
		fmt.Sprintf("/consultatie/reactie/%d", n),
		fmt.Sprintf("Inzender %d", n),
		strPtr("Utrecht"),
		strPtr("1 oktober 2025 10:00"),
		fmt.Sprintf("http://example.test/consultatie/reactie/%d", n),
	)
	if err != nil {
		panic(err)
	}
	return stub
}

func newRow(n int) *models.Row {
	row, err := models.NewRow(newStub(n), &models.Detail{
		Naam:          strPtr(fmt.Sprintf("Inzender %d", n)),
		QnA:           []models.QnA{{Vraag: "Vraag 1", Antwoord: "Antwoord, met komma\nen regel"}},
		RawHTMLLength: 100 + n,
	})
	if err != nil {
		panic(err)
	}
	return row
}
