package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/akozlov/spendbot/internal/model"
)

// Generator рисует графики для ответов бота.
type Generator struct{}

// NewGenerator создает новый генератор графиков
func NewGenerator() *Generator {
	return &Generator{}
}

// Render строит столбчатую диаграмму трат по категориям в PNG.
// Возвращает nil без ошибки, если рисовать нечего.
func (g *Generator) Render(stats []model.CategoryTotal) ([]byte, error) {
	bars := make([]chart.Value, 0, len(stats))
	for _, s := range stats {
		v, _ := s.Total.Float64()
		if v <= 0 {
			continue
		}
		bars = append(bars, chart.Value{
			Label: string(s.Category),
			Value: v,
		})
	}
	if len(bars) == 0 {
		return nil, nil
	}

	graph := chart.BarChart{
		Title:    "Траты по категориям",
		Width:    800,
		Height:   400,
		BarWidth: 80,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.Style{
			FontSize:  12,
			FontColor: chart.ColorBlack,
		},
		YAxis: chart.YAxis{
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f₽", v.(float64))
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
