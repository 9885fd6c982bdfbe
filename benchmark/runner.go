package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/poiesic/placerank/core"
)

// Searcher runs a query. *retrieval.Model implements it.
type Searcher interface {
	Search(ctx context.Context, q core.Query, limit, offset int) ([]core.ScoredResult, int, error)
}

// QueryResult holds the measures of one query.
type QueryResult struct {
	Query            Query
	Retrieved        []core.ListingID
	Precision        float64
	Recall           float64
	F1               float64
	E                float64
	AveragePrecision float64
	Err              error
}

// Report holds the results of one model over a dataset.
type Report struct {
	Name    string
	Queries []QueryResult
	MeanF1  float64
	MAP     float64
}

// Run searches every query with no result limit and measures the answers.
// A failing query is recorded with zero scores and does not stop the run.
func Run(ctx context.Context, name string, model Searcher, queries []Query) (*Report, error) {
	logger := slog.Default().With("component", "benchmark", "model", name)
	report := &Report{Name: name, Queries: make([]QueryResult, 0, len(queries))}

	var f1s, aps []float64
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := QueryResult{Query: q, E: 1}
		results, _, err := model.Search(ctx, q.SearchQuery(), 0, 0)
		if err != nil {
			logger.Warn("benchmark query failed", "uin", q.UIN, "err", err)
			res.Err = err
		} else {
			res.Retrieved = make([]core.ListingID, len(results))
			for i, r := range results {
				res.Retrieved[i] = r.DocumentID
			}
			res.Precision = Precision(q.Relevant, res.Retrieved)
			res.Recall = Recall(q.Relevant, res.Retrieved)
			res.F1 = F1(res.Precision, res.Recall)
			res.E = E(res.Precision, res.Recall, DefaultEBeta)
			res.AveragePrecision = AveragePrecision(q.Relevant, res.Retrieved)
		}
		f1s = append(f1s, res.F1)
		aps = append(aps, res.AveragePrecision)
		report.Queries = append(report.Queries, res)
	}
	report.MeanF1 = Mean(f1s)
	report.MAP = Mean(aps)
	return report, nil
}

// Write prints the report as an aligned table.
func (r *Report) Write(w io.Writer) error {
	fmt.Fprintf(w, "%s\n", r.Name)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tquery\tresults\tP\tR\tF1\tE\tAP")
	for _, q := range r.Queries {
		if q.Err != nil {
			fmt.Fprintf(tw, "\t%s\terror: %v\t\t\t\t\t\n", q.Query.Text, q.Err)
			continue
		}
		fmt.Fprintf(tw, "\t%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			q.Query.Text, len(q.Retrieved), q.Precision, q.Recall, q.F1, q.E, q.AveragePrecision)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\tF1 mean: %.4f\n\tMAP: %.4f\n\n", r.MeanF1, r.MAP)
	return err
}
