package tender

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/przetargo/api/internal/model"
)

// seedTenders は開発環境用のサンプル公告データ。
var seedTenders = []model.ParsedTender{
	{
		SourceID:         "seed-0001",
		Title:            "System Zarządzania Dokumentacją AI z modułem NLP",
		Description:      "<p>Przedmiotem zamówienia jest zaprojektowanie, wdrożenie i utrzymanie systemu obiegu dokumentów wykorzystującego algorytmy sztucznej inteligencji do automatycznej kategoryzacji pism przychodzących.</p>",
		OrganizationName: "Ministerstwo Cyfryzacji",
		CPVCode:          "72000000-5",
		Location:         "Warszawa, Mazowieckie",
		Budget:           "500 000 PLN",
		Link:             "https://ezamowienia.gov.pl/mp-client/search/list/ocds-seed-0001",
	},
	{
		SourceID:         "seed-0002",
		Title:            "Modernizacja Infrastruktury IT - Etap II",
		Description:      "<p>Dostawa i instalacja sprzętu sieciowego oraz serwerowego w lokalizacjach na terenie całego kraju.</p>",
		OrganizationName: "PKP Intercity S.A.",
		CPVCode:          "30200000-1",
		Location:         "Cała Polska",
		Budget:           "1 200 000 PLN",
		Link:             "https://ezamowienia.gov.pl/mp-client/search/list/ocds-seed-0002",
	},
	{
		SourceID:         "seed-0003",
		Title:            "Wdrożenie Systemu Business Intelligence",
		Description:      "<p>Dostawa licencji oraz wdrożenie platformy analitycznej do raportowania wydatków budżetowych.</p>",
		OrganizationName: "Urząd Miasta Kraków",
		CPVCode:          "48000000-8",
		Location:         "Kraków, Małopolskie",
		Budget:           "150 000 PLN",
		Link:             "https://ezamowienia.gov.pl/mp-client/search/list/ocds-seed-0003",
	},
	{
		SourceID:         "seed-0004",
		Title:            "Dostawa sprzętu serwerowego dla serwerowni zapasowej",
		Description:      "<p>Dostawa, montaż i konfiguracja serwerów wraz z macierzą dyskową dla zapasowego ośrodka przetwarzania danych.</p>",
		OrganizationName: "Szpital Wojewódzki w Gdańsku",
		CPVCode:          "30200000-1",
		Location:         "Gdańsk, Pomorskie",
		Budget:           "850 000 PLN",
		Link:             "https://ezamowienia.gov.pl/mp-client/search/list/ocds-seed-0004",
	},
	{
		SourceID:         "seed-0005",
		Title:            "Remont nawierzchni drogi wojewódzkiej nr 780",
		Description:      "<p>Roboty budowlane obejmujące frezowanie istniejącej nawierzchni i ułożenie nowej warstwy ścieralnej na odcinku 4,2 km.</p>",
		OrganizationName: "Zarząd Dróg Wojewódzkich w Katowicach",
		CPVCode:          "45233000-9",
		Location:         "Katowice, Śląskie",
		Budget:           "3 400 000 PLN",
		Link:             "https://ezamowienia.gov.pl/mp-client/search/list/ocds-seed-0005",
	},
	{
		SourceID:         "seed-0006",
		Title:            "Usługa ochrony fizycznej obiektów uczelni",
		Description:      "<p>Całodobowa ochrona fizyczna budynków dydaktycznych wraz z obsługą systemów monitoringu wizyjnego.</p>",
		OrganizationName: "Uniwersytet Wrocławski",
		CPVCode:          "79700000-1",
		Location:         "Wrocław, Dolnośląskie",
		Budget:           "620 000 PLN",
		Link:             "https://ezamowienia.gov.pl/mp-client/search/list/ocds-seed-0006",
	},
}

// seedSource はサンプルデータに付与するソース名。
const seedSource = "seed"

// Seed は開発環境用のサンプル公告をUPSERTする。
// 既に同一内容で登録済みのものはスキップされる(再実行は安全)。
func Seed(ctx context.Context, upsert *UpsertService) error {
	now := time.Now()
	parsed := make([]model.ParsedTender, len(seedTenders))
	for i, t := range seedTenders {
		t.PublicationDate = now.AddDate(0, 0, -i*3)
		t.SubmissionDeadline = now.AddDate(0, 0, 21-i*2)
		parsed[i] = t
	}

	written, err := upsert.UpsertTenders(ctx, seedSource, parsed)
	if err != nil {
		return fmt.Errorf("failed to seed tenders: %w", err)
	}

	slog.Info("tender seed completed",
		slog.Int("written", written),
		slog.Int("total", len(parsed)),
	)

	return nil
}
