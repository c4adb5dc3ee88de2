// Copyright 2025 SAP SE
// SPDX-License-Identifier: Apache-2.0

// Package keystone authenticates against OpenStack Keystone for the
// optional Nova fleet sync. Unlike the Kubernetes-secret-sourced connector
// this is ported from, credentials here always come from conf.KeystoneConfig
// — this module has no Kubernetes runtime to pull a Secret from.
package keystone

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cobaltcore-dev/consolidator/internal/conf"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
)

// KeystoneAPI authenticates and locates service endpoints for OpenStack.
type KeystoneAPI interface {
	Authenticate(context.Context) error
	Client() *gophercloud.ProviderClient
	FindEndpoint(availability, serviceType string) (string, error)
	Availability() string
}

type keystoneAPI struct {
	client       *gophercloud.ProviderClient
	keystoneConf conf.KeystoneConfig
	httpClient   *http.Client
}

func NewKeystoneAPI(keystoneConf conf.KeystoneConfig) KeystoneAPI {
	return &keystoneAPI{keystoneConf: keystoneConf}
}

func NewKeystoneAPIWithHTTPClient(keystoneConf conf.KeystoneConfig, httpClient *http.Client) KeystoneAPI {
	return &keystoneAPI{keystoneConf: keystoneConf, httpClient: httpClient}
}

func (api *keystoneAPI) Authenticate(ctx context.Context) error {
	if api.client != nil {
		return nil
	}
	slog.Info("authenticating against openstack", "url", api.keystoneConf.URL)
	authOptions := gophercloud.AuthOptions{
		IdentityEndpoint: api.keystoneConf.URL,
		Username:         api.keystoneConf.OSUsername,
		DomainName:       api.keystoneConf.OSUserDomainName,
		Password:         api.keystoneConf.OSPassword,
		AllowReauth:      true,
		Scope: &gophercloud.AuthScope{
			ProjectName: api.keystoneConf.OSProjectName,
			DomainName:  api.keystoneConf.OSProjectDomainName,
		},
	}
	provider, err := openstack.NewClient(authOptions.IdentityEndpoint)
	if err != nil {
		return err
	}
	if api.httpClient != nil {
		provider.HTTPClient = *api.httpClient
	}
	if err := openstack.Authenticate(ctx, provider, authOptions); err != nil {
		return err
	}
	api.client = provider
	slog.Info("authenticated against openstack")
	return nil
}

func (api *keystoneAPI) FindEndpoint(availability, serviceType string) (string, error) {
	return api.client.EndpointLocator(gophercloud.EndpointOpts{
		Type:         serviceType,
		Availability: gophercloud.Availability(availability),
	})
}

func (api *keystoneAPI) Availability() string { return api.keystoneConf.Availability }

func (api *keystoneAPI) Client() *gophercloud.ProviderClient { return api.client }
