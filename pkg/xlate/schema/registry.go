package schema

import (
	"sort"

	xlateerrors "github.com/marmos91/xdrproxy/pkg/xlate/errors"
)

// Registry is an immutable set of programs keyed by name.
type Registry struct {
	programs map[string]*Program
}

func newRegistry() *Registry {
	return &Registry{programs: make(map[string]*Program)}
}

func (r *Registry) add(p *Program) {
	r.programs[p.Name] = p
}

// Len returns the number of programs.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.programs)
}

// Program returns the program registered under name.
func (r *Registry) Program(name string) (*Program, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.programs[name]
	return p, ok
}

// Lookup resolves a program/procno pair. An unknown pair is an
// UnknownProcedure error.
func (r *Registry) Lookup(program string, procno uint32) (*Program, *Procedure, error) {
	prog, ok := r.Program(program)
	if !ok {
		return nil, nil, xlateerrors.NewUnknownProgramError(program)
	}
	proc, ok := prog.Procedure(procno)
	if !ok {
		return nil, nil, xlateerrors.NewUnknownProcedureError(program, procno)
	}
	return prog, proc, nil
}

// Programs returns all programs sorted by name.
func (r *Registry) Programs() []*Program {
	if r == nil {
		return nil
	}
	out := make([]*Program, 0, len(r.programs))
	for _, p := range r.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ProcedureInfo is a flat description of one registered procedure.
type ProcedureInfo struct {
	Program string `json:"program" yaml:"program"`
	Number  uint32 `json:"number" yaml:"number"`
	Version uint32 `json:"version" yaml:"version"`
	ProcNo  uint32 `json:"procno" yaml:"procno"`
	Name    string `json:"name" yaml:"name"`
	Arg     string `json:"arg" yaml:"arg"`
	Res     string `json:"res" yaml:"res"`
}

// Procedures lists every procedure ordered by program name then procno.
func (r *Registry) Procedures() []ProcedureInfo {
	var out []ProcedureInfo
	for _, p := range r.Programs() {
		nums := make([]uint32, 0, len(p.Procedures))
		for n := range p.Procedures {
			nums = append(nums, n)
		}
		sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })

		for _, n := range nums {
			proc := p.Procedures[n]
			out = append(out, ProcedureInfo{
				Program: p.Name,
				Number:  p.Number,
				Version: p.Version,
				ProcNo:  proc.Number,
				Name:    proc.Name,
				Arg:     proc.Arg.String(),
				Res:     proc.Res.String(),
			})
		}
	}
	return out
}
