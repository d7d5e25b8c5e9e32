package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"

	"github.com/plus3/luminara/ecs"
)

// Report collects the inputs and results of one stress run.
type Report struct {
	Duration   time.Duration
	Entities   int
	Components int
	Workers    int
	Churn      int

	Frames         FrameTimes
	Elapsed        time.Duration
	GCPauseMetrics bool
	MemBefore      runtime.MemStats
	MemAfter       runtime.MemStats
	World          ecs.WorldStats
	Schedule       *ecs.ScheduleStats
}

// FrameTimes summarizes per-frame durations.
type FrameTimes struct {
	Samples []time.Duration

	Min, Max, Mean time.Duration
	P50, P95, P99  time.Duration
}

func (f *FrameTimes) Add(d time.Duration) {
	f.Samples = append(f.Samples, d)
}

// Summarize fills the aggregate fields. Samples are left sorted.
func (f *FrameTimes) Summarize() {
	n := len(f.Samples)
	if n == 0 {
		return
	}
	slices.Sort(f.Samples)

	var total time.Duration
	for _, s := range f.Samples {
		total += s
	}
	f.Min, f.Max = f.Samples[0], f.Samples[n-1]
	f.Mean = total / time.Duration(n)
	f.P50 = f.percentile(50)
	f.P95 = f.percentile(95)
	f.P99 = f.percentile(99)
}

// percentile uses nearest rank on the sorted samples.
func (f *FrameTimes) percentile(p int) time.Duration {
	rank := (p*len(f.Samples) + 99) / 100
	return f.Samples[max(rank-1, 0)]
}

// FPS is the achieved frame rate over the whole run.
func (r *Report) FPS() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(len(r.Frames.Samples)) / r.Elapsed.Seconds()
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"mib": func(b uint64) string {
		return fmt.Sprintf("%.2f MiB", float64(b)/(1<<20))
	},
	"mibDelta": func(after, before uint64) string {
		return fmt.Sprintf("%+.2f MiB", (float64(after)-float64(before))/(1<<20))
	},
	"gcs": func(after, before uint32) uint32 { return after - before },
	"pause": func(after, before uint64) time.Duration {
		return time.Duration(after - before)
	},
}).Parse(`
# ECS Stress Report

## Run
| setting | value |
|---------|-------|
| duration | {{.Duration}} |
| initial entities | {{.Entities}} |
| component types | {{.Components}} |
| workers | {{.Workers}} |
| churn per frame | {{.Churn}} |

## Frames
- **Frames:** {{len .Frames.Samples}} in {{.Elapsed}} ({{printf "%.1f" .FPS}} fps)
- **Frame time:** mean {{.Frames.Mean}}, min {{.Frames.Min}}, max {{.Frames.Max}}
- **Percentiles:** p50 {{.Frames.P50}}, p95 {{.Frames.P95}}, p99 {{.Frames.P99}}

## World
- **Live Entities:** {{.World.EntityCount}}
- **Component Tables:** {{.World.ComponentTypeCount}}
- **Final Tick:** {{.World.Tick}}
{{range .World.Tables}}  - {{.Name}}: {{.Count}}
{{end}}
{{with .Schedule}}
## Systems ({{.SystemCount}} systems, {{.TotalExecutions}} executions)
| Stage | System | Access | Runs | Avg | Max |
|-------|--------|--------|------|-----|-----|
{{range .Systems}}| {{.Stage}} | {{.Name}} | {{.Access}} | {{.ExecutionCount}} | {{.AvgDuration}} | {{.MaxDuration}} |
{{end}}{{end}}
## Memory
- **Heap in use:** {{mib .MemBefore.HeapAlloc}} -> {{mib .MemAfter.HeapAlloc}} ({{mibDelta .MemAfter.HeapAlloc .MemBefore.HeapAlloc}})
- **Allocated over run:** {{mibDelta .MemAfter.TotalAlloc .MemBefore.TotalAlloc}}
- **GC cycles:** {{gcs .MemAfter.NumGC .MemBefore.NumGC}}
{{if .GCPauseMetrics}}- **GC pause total:** {{pause .MemAfter.PauseTotalNs .MemBefore.PauseTotalNs}}
{{end}}`))

// Generate writes the report as markdown.
func (r *Report) Generate(w io.Writer) error {
	return reportTemplate.Execute(w, r)
}
