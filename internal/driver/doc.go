// Package driver runs a day-stepped population through births and deaths.
//
// A Driver owns an engine.Recorder for the length of one run. Each day it
// snapshots the population, computes rates from the ratemodel.Model, draws
// conceptions or node-level births, draws deaths, delivers pregnancies that
// reach term, ages everyone by one day and hands the day's snapshot and
// events to its observers. Draws come from gonum distributions over a single
// seeded PCG source, so a fixed seed and configuration reproduce a run.
package driver
