// Copyright 2025 SAP SE
// SPDX-License-Identifier: Apache-2.0

// Package openstack seeds a fleet model from a live OpenStack deployment by
// listing Nova hypervisors and servers through a Keystone-authenticated
// Gophercloud client. It only ever reads Nova state — it never calls
// live-migrate, since executing a computed migration map against a real
// cloud is out of scope for this planner.
package openstack

import (
	"context"
	"log/slog"

	"github.com/cobaltcore-dev/consolidator/internal/fleet"
	"github.com/cobaltcore-dev/consolidator/internal/fleet/power"
	"github.com/cobaltcore-dev/consolidator/internal/keystone"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/hypervisors"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/v2/pagination"
)

// server is a minimal projection of the Nova server response, following
// this codebase family's pattern of decoding only the extended attributes a
// component actually needs rather than the full gophercloud servers.Server
// struct.
type server struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	VCPUs       int    `json:"-"`
	ComputeHost string `json:"OS-EXT-SRV-ATTR:host"`
}

// NovaAPI is the subset of Nova this syncer needs. It is intentionally
// read-only: no live-migrate method is exposed.
type NovaAPI interface {
	Init(ctx context.Context) error
	ListHypervisors(ctx context.Context) ([]hypervisors.Hypervisor, error)
	ListServers(ctx context.Context) ([]server, error)
}

type novaAPI struct {
	keystoneAPI  keystone.KeystoneAPI
	availability string
	sc           *gophercloud.ServiceClient
}

func NewNovaAPI(keystoneAPI keystone.KeystoneAPI, availability string) NovaAPI {
	return &novaAPI{keystoneAPI: keystoneAPI, availability: availability}
}

func (api *novaAPI) Init(ctx context.Context) error {
	if err := api.keystoneAPI.Authenticate(ctx); err != nil {
		return err
	}
	url, err := api.keystoneAPI.FindEndpoint(api.availability, "compute")
	if err != nil {
		return err
	}
	slog.Info("using nova endpoint", "url", url)
	api.sc = &gophercloud.ServiceClient{
		ProviderClient: api.keystoneAPI.Client(),
		Endpoint:       url,
		Type:           "compute",
		// Since microversion 2.53, the hypervisor id is a UUID.
		Microversion: "2.53",
	}
	return nil
}

func (api *novaAPI) ListHypervisors(ctx context.Context) ([]hypervisors.Hypervisor, error) {
	var out []hypervisors.Hypervisor
	pager := hypervisors.List(api.sc, hypervisors.ListOpts{})
	err := pager.EachPage(ctx, func(_ context.Context, page pagination.Page) (bool, error) {
		batch, err := hypervisors.ExtractHypervisors(page)
		if err != nil {
			return false, err
		}
		out = append(out, batch...)
		return true, nil
	})
	return out, err
}

func (api *novaAPI) ListServers(ctx context.Context) ([]server, error) {
	var out []server
	pager := servers.List(api.sc, servers.ListOpts{AllTenants: true})
	err := pager.EachPage(ctx, func(_ context.Context, page pagination.Page) (bool, error) {
		var batch []server
		if err := servers.ExtractServersInto(page, &batch); err != nil {
			return false, err
		}
		out = append(out, batch...)
		return true, nil
	})
	return out, err
}

// Sync builds a fleet.View from a live Nova deployment: one fleet.Host per
// hypervisor (capacity from its reported vCPU figure, a fixed IOPS budget
// per hypervisor since Nova exposes no IO capacity figure), with resident
// VMs assigned from the server list by matching each server's compute host
// to a hypervisor's hostname. Servers whose host cannot be matched are
// skipped with a warning rather than failing the whole sync.
func Sync(ctx context.Context, api NovaAPI, model power.Model, mipsPerVCPU, iopsPerHypervisor, iopsPerVM float64) (*fleet.View, error) {
	hvList, err := api.ListHypervisors(ctx)
	if err != nil {
		return nil, err
	}
	srvList, err := api.ListServers(ctx)
	if err != nil {
		return nil, err
	}

	hostsByName := make(map[string]*fleet.Host, len(hvList))
	var hosts []*fleet.Host
	for i, hv := range hvList {
		h := fleet.NewHost(i, float64(hv.VCPUs)*mipsPerVCPU, iopsPerHypervisor, model)
		hostsByName[hv.HypervisorHostname] = h
		hosts = append(hosts, h)
	}

	for i, s := range srvList {
		if s.Status != "ACTIVE" {
			continue
		}
		host, ok := hostsByName[s.ComputeHost]
		if !ok {
			slog.Warn("openstack sync: skipping server with unmatched compute host", "serverID", s.ID, "host", s.ComputeHost)
			continue
		}
		vm := &fleet.VM{
			UID:                i,
			RequestedTotalMips: mipsPerVCPU,
			RequestedIops:      iopsPerVM,
		}
		host.VMCreate(vm)
	}

	return fleet.NewView(hosts), nil
}
