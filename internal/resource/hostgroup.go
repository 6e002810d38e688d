package resource

import (
	"context"
	"fmt"

	"github.com/GabrielNunesIT/cls-shipper/internal/transport"
)

// HostGroup is a named set of machines running the collector agent.
type HostGroup struct {
	ID         string   `json:"group_id,omitempty"`
	Name       string   `json:"group_name,omitempty"`
	IPs        []string `json:"ips,omitempty"`
	CreateTime string   `json:"create_time,omitempty"`
}

// HostStatus is the agent state of one machine in a group.
type HostStatus struct {
	IP     string `json:"ip"`
	Status int    `json:"status"`
}

// Healthy reports whether the agent on the machine is running normally.
func (s HostStatus) Healthy() bool {
	return s.Status == 1
}

type hostGroupList struct {
	HostGroups []HostGroup `json:"machine_groups"`
}

type hostStatusList struct {
	Machines []HostStatus `json:"machines"`
}

// CreateHostGroup creates a host group and returns its id.
func CreateHostGroup(ctx context.Context, c Caller, g HostGroup) (string, error) {
	var created HostGroup
	if err := c.Create(ctx, "machinegroup", transport.FormatJSON, g, &created); err != nil {
		return "", fmt.Errorf("creating host group %q: %w", g.Name, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("creating host group %q: %w", g.Name, ErrEmptyID)
	}
	return created.ID, nil
}

// GetHostGroup fetches one host group by id.
func GetHostGroup(ctx context.Context, c Caller, id string) (*HostGroup, error) {
	g := &HostGroup{}
	if err := c.Get(ctx, buildPath("machinegroup", "group_id", id), transport.FormatJSON, g); err != nil {
		return nil, fmt.Errorf("getting host group %s: %w", id, err)
	}
	return g, nil
}

// ListHostGroups returns every host group of the account.
func ListHostGroups(ctx context.Context, c Caller) ([]HostGroup, error) {
	var list hostGroupList
	if err := c.Get(ctx, "machinegroups", transport.FormatJSON, &list); err != nil {
		return nil, fmt.Errorf("listing host groups: %w", err)
	}
	return list.HostGroups, nil
}

// HostGroupStatus returns the agent state of every machine in a group.
func HostGroupStatus(ctx context.Context, c Caller, id string) ([]HostStatus, error) {
	var list hostStatusList
	if err := c.Get(ctx, buildPath("machines", "group_id", id), transport.FormatJSON, &list); err != nil {
		return nil, fmt.Errorf("getting status of host group %s: %w", id, err)
	}
	return list.Machines, nil
}

// UpdateHostGroup changes the group identified by g.ID.
func UpdateHostGroup(ctx context.Context, c Caller, g HostGroup) error {
	if err := c.Update(ctx, "machinegroup", g); err != nil {
		return fmt.Errorf("updating host group %s: %w", g.ID, err)
	}
	return nil
}

// DeleteHostGroup removes a host group.
func DeleteHostGroup(ctx context.Context, c Caller, id string) error {
	if err := c.Delete(ctx, buildPath("machinegroup", "group_id", id)); err != nil {
		return fmt.Errorf("deleting host group %s: %w", id, err)
	}
	return nil
}
