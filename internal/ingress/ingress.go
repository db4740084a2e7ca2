package ingress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"hello-kubecon/internal/logger"
)

var ErrMissingParam = errors.New("missing ingress parameter")

// Params are the routing parameters sent over the ingress relation.
type Params struct {
	ServiceHostname string `yaml:"service-hostname" json:"service-hostname"`
	IngressClass    string `yaml:"ingress-class,omitempty" json:"ingress-class,omitempty"`
	ServiceName     string `yaml:"service-name" json:"service-name"`
	ServicePort     int    `yaml:"service-port" json:"service-port"`
}

func (p Params) Validate() error {
	switch {
	case p.ServiceHostname == "":
		return fmt.Errorf("%w: service-hostname", ErrMissingParam)
	case p.ServiceName == "":
		return fmt.Errorf("%w: service-name", ErrMissingParam)
	case p.ServicePort <= 0:
		return fmt.Errorf("%w: service-port", ErrMissingParam)
	}
	return nil
}

// Publisher hands the params to whatever provides ingress.
type Publisher interface {
	Publish(ctx context.Context, params Params) error
}

/**
 * Requirer 是ingress关系的需求方
 * @description
 * - 构造时校验并发布一次参数
 * - UpdateConfig 只在参数变化时重新发布
 */
type Requirer struct {
	publisher Publisher
	mutex     sync.Mutex
	params    Params
}

func NewRequirer(ctx context.Context, publisher Publisher, params Params) (*Requirer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := publisher.Publish(ctx, params); err != nil {
		return nil, fmt.Errorf("publish ingress params: %w", err)
	}
	logger.Infof("Ingress registered: %s -> %s:%d", params.ServiceHostname, params.ServiceName, params.ServicePort)
	return &Requirer{publisher: publisher, params: params}, nil
}

func (r *Requirer) Params() Params {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.params
}

func (r *Requirer) UpdateConfig(ctx context.Context, params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if params == r.params {
		return nil
	}
	if err := r.publisher.Publish(ctx, params); err != nil {
		return fmt.Errorf("publish ingress params: %w", err)
	}
	r.params = params
	logger.Infof("Ingress updated: %s -> %s:%d", params.ServiceHostname, params.ServiceName, params.ServicePort)
	return nil
}

// RelationPublisher writes the relation databag as a YAML file
type RelationPublisher struct {
	Path string
}

func NewRelationPublisher(stateDir string) *RelationPublisher {
	return &RelationPublisher{Path: filepath.Join(stateDir, "relations", "ingress.yaml")}
}

func (p *RelationPublisher) Publish(ctx context.Context, params Params) error {
	data, err := yaml.Marshal(params)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0755); err != nil {
		return err
	}
	return os.WriteFile(p.Path, data, 0644)
}

// Load reads back the last published databag
func (p *RelationPublisher) Load() (Params, error) {
	var params Params
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return params, err
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("parse '%s': %w", p.Path, err)
	}
	return params, nil
}

// MemoryPublisher keeps every published value in memory
type MemoryPublisher struct {
	mutex     sync.Mutex
	published []Params
}

func (p *MemoryPublisher) Publish(ctx context.Context, params Params) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.published = append(p.published, params)
	return nil
}

func (p *MemoryPublisher) Published() []Params {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]Params(nil), p.published...)
}
