// Package growth fits normative growth curves for one (sex, tissue,
// biomarker) unit at a time.
//
// A Pipeline run goes through fixed stages:
//
//  1. clean: drop incomplete rows, trim |z| > 3 outliers, decide on a log
//     transform from the response skewness, trim the upper tail
//  2. grid: enumerate candidate (family, smoother, strength, df) specs
//  3. select: fit candidates in parallel and keep the lowest AIC among
//     those that converged
//  4. centiles: evaluate the selected model's quantile function
//  5. overlay: score disease rows of the gating tissue, if any
//
// Fatal errors are *errors.AppError values tagged with the stage and the
// unit. RunBatch isolates them so one failing unit does not stop its
// siblings.
package growth
