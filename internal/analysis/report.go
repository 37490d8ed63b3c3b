package analysis

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

const (
	sheetOverview      = "Overview"
	sheetBehavior      = "Behavior"
	sheetCommunication = "Communication"
	sheetInsight       = "Insight"
)

// BuildReport renders a completed result as an xlsx workbook, one sheet per
// result section. Degraded sections are omitted.
func BuildReport(res Result) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetOverview); err != nil {
		return nil, err
	}

	if err := writeOverview(f, res); err != nil {
		return nil, err
	}
	if err := writeBehavior(f, res); err != nil {
		return nil, err
	}
	if res.Transcript != nil {
		if err := writeCommunication(f, res); err != nil {
			return nil, err
		}
	}
	if res.Insight != nil {
		if err := writeInsight(f, res); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeOverview(f *excelize.File, res Result) error {
	rows := [][2]any{
		{"Session", res.SessionID},
		{"Combined score", res.Overall.Combined},
		{"Grade", res.Overall.Grade},
		{"Visual behavior score", res.CVScore},
	}
	if res.CommunicationScore != nil {
		rows = append(rows, [2]any{"Communication score", *res.CommunicationScore})
	}
	for _, section := range res.MissingSections {
		rows = append(rows, [2]any{"Missing section", section})
	}
	return writeKeyValues(f, sheetOverview, rows)
}

func writeBehavior(f *excelize.File, res Result) error {
	if _, err := f.NewSheet(sheetBehavior); err != nil {
		return err
	}
	agg := res.Aggregate

	rows := [][2]any{
		{"Duration (s)", agg.DurationSeconds},
		{"Frames analyzed", agg.FrameCount},
		{"Sampling rate (fps)", agg.SamplingRate},
		{"Face detection rate (%)", agg.FaceDetectionRate},
		{"Eye contact rate (%)", agg.EyeContactRate},
		{"Gaze stability (%)", agg.GazeStability},
		{"Posture stability (%)", agg.PostureStability},
		{"Average attention", agg.AvgAttention},
		{"Blinks", agg.BlinkTotal},
		{"Face touches", agg.FaceTouchTotal},
		{"Distraction alerts", agg.AlertTotal},
		{"Attention subscore", agg.AttentionScore},
		{"Posture subscore", agg.PostureScore},
		{"Expression subscore", agg.ExpressionScore},
		{"Gesture subscore", agg.GestureScore},
	}
	rows = append(rows, distributionRows("Expression", agg.ExpressionPct)...)
	rows = append(rows, distributionRows("Posture", agg.PosturePct)...)
	rows = append(rows, distributionRows("Gesture", agg.GesturePct)...)

	return writeKeyValues(f, sheetBehavior, rows)
}

func writeCommunication(f *excelize.File, res Result) error {
	if _, err := f.NewSheet(sheetCommunication); err != nil {
		return err
	}
	tm := res.Transcript

	rows := [][2]any{
		{"Score", tm.Score},
		{"Grade", tm.Grade},
		{"Words", tm.WordCount},
		{"Words per minute", tm.WordsPerMinute},
		{"Pace", tm.PaceRating},
		{"Filler words", tm.FillerTotal},
		{"Filler percentage", tm.FillerPct},
		{"Most frequent filler", tm.MostFrequentFiller},
		{"Unique words", tm.UniqueWordCount},
		{"Vocabulary diversity", tm.DiversityRatio},
		{"Average sentence length", tm.Sentences.Avg},
		{"Shortest sentence", tm.Sentences.Min},
		{"Longest sentence", tm.Sentences.Max},
		{"Sentence rating", tm.Sentences.Rating},
	}
	rows = append(rows, distributionCountRows("Filler", tm.FillerCounts)...)

	return writeKeyValues(f, sheetCommunication, rows)
}

func writeInsight(f *excelize.File, res Result) error {
	if _, err := f.NewSheet(sheetInsight); err != nil {
		return err
	}
	ins := res.Insight

	rows := [][2]any{{"Summary", ins.Summary}}
	for _, s := range ins.Strengths {
		rows = append(rows, [2]any{"Strength", s})
	}
	for _, s := range ins.Improvements {
		rows = append(rows, [2]any{"Improvement", s})
	}
	for _, s := range ins.Recommendations {
		rows = append(rows, [2]any{"Recommendation", s})
	}
	return writeKeyValues(f, sheetInsight, rows)
}

func writeKeyValues(f *excelize.File, sheet string, rows [][2]any) error {
	for i, row := range rows {
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), row[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", i+1), row[1]); err != nil {
			return err
		}
	}
	return nil
}

func distributionRows(prefix string, dist map[string]float64) [][2]any {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][2]any, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, [2]any{fmt.Sprintf("%s: %s (%%)", prefix, k), dist[k]})
	}
	return rows
}

func distributionCountRows(prefix string, dist map[string]int) [][2]any {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][2]any, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, [2]any{fmt.Sprintf("%s: %s", prefix, k), dist[k]})
	}
	return rows
}
