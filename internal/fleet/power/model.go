// Package power provides power-draw models for hosts, the way the CloudSim
// power package this algorithm is ported from models them: a function from
// CPU utilization fraction to watts.
package power

import "fmt"

// Model computes the power drawn by a host at a given CPU utilization
// fraction in [0,1]. Implementations return an error instead of CloudSim's
// -1 sentinel when utilization falls outside that range; callers treat a
// non-nil error as "this host cannot be scored" rather than a fatal
// condition.
type Model interface {
	Power(utilization float64) (float64, error)
}

func checkRange(u float64) error {
	if u < 0 || u > 1 {
		return fmt.Errorf("power: utilization %.4f out of range [0,1]", u)
	}
	return nil
}

// Linear interpolates between IdleWatts (at utilization 0) and MaxWatts (at
// utilization 1).
type Linear struct {
	IdleWatts float64
	MaxWatts  float64
}

func (m Linear) Power(u float64) (float64, error) {
	if err := checkRange(u); err != nil {
		return -1, err
	}
	return m.IdleWatts + (m.MaxWatts-m.IdleWatts)*u, nil
}

// CubicSpec approximates the published SPECpower_ssj2008 datapoint curves
// that the CloudSim power model family is built around, where power grows
// with the cube of utilization rather than linearly.
type CubicSpec struct {
	IdleWatts float64
	MaxWatts  float64
}

func (m CubicSpec) Power(u float64) (float64, error) {
	if err := checkRange(u); err != nil {
		return -1, err
	}
	return m.IdleWatts + (m.MaxWatts-m.IdleWatts)*u*u*u, nil
}

// Constant draws a fixed amount of power regardless of utilization, for
// switched-off or unmetered hosts.
type Constant struct {
	Watts float64
}

func (m Constant) Power(_ float64) (float64, error) {
	return m.Watts, nil
}
