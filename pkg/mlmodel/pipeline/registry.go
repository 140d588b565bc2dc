package pipeline

import "github.com/pkg/errors"

// Registry maps model names to pipelines and remembers insertion order.
type Registry struct {
	names     []string
	pipelines map[string]*Pipeline
}

func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[string]*Pipeline)}
}

// Add registers p under its name. A name can only be registered once.
func (r *Registry) Add(p *Pipeline) error {
	if _, ok := r.pipelines[p.Name]; ok {
		return errors.Errorf("model %q registered twice", p.Name)
	}
	r.names = append(r.names, p.Name)
	r.pipelines[p.Name] = p
	return nil
}

// Get returns the pipeline registered under name.
func (r *Registry) Get(name string) (*Pipeline, error) {
	p, ok := r.pipelines[name]
	if !ok {
		return nil, errors.Wrap(ErrModelNotFound, name)
	}
	return p, nil
}

// Names returns the registered names in insertion order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) Len() int { return len(r.names) }
