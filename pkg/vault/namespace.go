package vault

import (
	"context"
	"fmt"
	"net/http"
)

const namespacesPath = "sys/namespaces"

// Namespace is an isolated administrative partition on the server.
type Namespace struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

func namespaceRequest(method, path string) (*Request, error) {
	if err := checkPath("namespace path", path); err != nil {
		return nil, err
	}
	return NewRequest(method, namespacesPath, path), nil
}

// ListNamespaces lists the child namespaces of the client's namespace.
func (c *Client) ListNamespaces(ctx context.Context) ([]string, error) {
	keys, err := c.SendList(ctx, NewRequest(MethodList, namespacesPath))
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	return keys, nil
}

// CreateNamespace creates the namespace at path
func (c *Client) CreateNamespace(ctx context.Context, path string) error {
	r, err := namespaceRequest(http.MethodPost, path)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r, nil); err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", path, err)
	}
	return nil
}

// DeleteNamespace deletes the namespace at path
func (c *Client) DeleteNamespace(ctx context.Context, path string) error {
	r, err := namespaceRequest(http.MethodDelete, path)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, r, nil); err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", path, err)
	}
	return nil
}

// ReadNamespace returns the namespace at path
func (c *Client) ReadNamespace(ctx context.Context, path string) (*Namespace, error) {
	r, err := namespaceRequest(http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var ns Namespace
	if err := c.SendData(ctx, r, &ns); err != nil {
		return nil, fmt.Errorf("failed to read namespace %s: %w", path, err)
	}
	return &ns, nil
}
