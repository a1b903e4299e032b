// Package viz renders simulation output in the terminal.
//
//   - [PlotSeries], [PlotUnits], [PlotLyapunov], [PlotCorrelation]: asciigraph
//     line charts
//   - [Canvas]: Braille pixel canvas for phase portraits
//   - [Progress]: Bubble Tea view of a batch of runs
//
// Styles are lipgloss definitions shared with the CLI summaries.
package viz
