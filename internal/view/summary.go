package view

import (
	"fmt"
	"sort"
	"time"

	"github.com/hitoshi/catalogo/internal/model"
)

// recentWindow は「今週追加」とみなす期間。
const recentWindow = 7 * 24 * time.Hour

// maxActivities はホーム画面に表示する最近のアクティビティ件数。
const maxActivities = 3

// Activity は最近のアクティビティ1件。
type Activity struct {
	ProductID int64
	Titulo    string
	TimeText  string
}

// HomeSummary はホーム画面の集計。
type HomeSummary struct {
	Total      int
	Recent     int
	Pending    int
	Activities []Activity
}

// BuildHomeSummary はキャッシュからホーム画面の集計を作る。
// data_cadastroが無い商品はnowに登録されたものとして扱う。
func BuildHomeSummary(products []model.Product, now time.Time) HomeSummary {
	weekAgo := now.Add(-recentWindow)
	recent := 0
	for _, p := range products {
		if registeredAt(p, now).After(weekAgo) {
			recent++
		}
	}

	sorted := make([]model.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		return registeredAt(sorted[i], now).After(registeredAt(sorted[j], now))
	})
	if len(sorted) > maxActivities {
		sorted = sorted[:maxActivities]
	}

	activities := make([]Activity, 0, len(sorted))
	for _, p := range sorted {
		activities = append(activities, Activity{
			ProductID: p.ID,
			Titulo:    p.Titulo,
			TimeText:  RelativeTime(registeredAt(p, now), now),
		})
	}

	return HomeSummary{
		Total:      len(products),
		Recent:     recent,
		Pending:    0,
		Activities: activities,
	}
}

// RelativeTime は経過時間をポルトガル語の相対表現にする。
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	days := int(diff / (24 * time.Hour))
	hours := int(diff / time.Hour)

	switch {
	case days > 0:
		return fmt.Sprintf("%d %s atrás", days, plural(days, "dia", "dias"))
	case hours > 0:
		return fmt.Sprintf("%d %s atrás", hours, plural(hours, "hora", "horas"))
	default:
		return "Agora mesmo"
	}
}

func registeredAt(p model.Product, now time.Time) time.Time {
	if p.DataCadastro.IsZero() {
		return now
	}
	return p.DataCadastro
}

func plural(n int, one, many string) string {
	if n > 1 {
		return many
	}
	return one
}
