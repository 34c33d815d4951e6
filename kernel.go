package gpgpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/exp/constraints"
)

// KernelBuilder accumulates descriptor sets and compiles them together
// with a shader entry point into a Kernel. Descriptor sets become bind
// groups in the order they were added: the first set is group 0, the
// second group 1 and so on, which must match the group numbering the
// shader declares. A builder is consumed by Build and cannot be used
// afterwards.
type KernelBuilder struct {
	fw         *Framework
	shader     *wgpu.ShaderModule
	entryPoint string
	sets       []*DescriptorSet
	built      bool
}

// CreateKernelBuilder starts building a kernel executing entryPoint of
// the given shader module.
func (fw *Framework) CreateKernelBuilder(shader *wgpu.ShaderModule, entryPoint string) *KernelBuilder {
	return &KernelBuilder{
		fw:         fw,
		shader:     shader,
		entryPoint: entryPoint,
	}
}

// AddDescriptorSet appends a descriptor set. Its position becomes its
// bind group index. Returns the builder for chaining.
func (kb *KernelBuilder) AddDescriptorSet(ds *DescriptorSet) *KernelBuilder {
	kb.sets = append(kb.sets, ds)
	return kb
}

// Build derives bind group layouts and bind groups from the accumulated
// descriptor sets, assembles the pipeline layout and compiles the
// compute pipeline. A missing entry point or a binding layout that does
// not match the shader fails here, before a Kernel exists.
func (kb *KernelBuilder) Build() (*Kernel, error) {
	if kb.built {
		return nil, errors.New("gpgpu: kernel builder already consumed")
	}
	kb.built = true

	layouts := make([]*wgpu.BindGroupLayout, 0, len(kb.sets))
	defer func() {
		for _, bgl := range layouts {
			bgl.Release()
		}
	}()

	groups := make([]*wgpu.BindGroup, 0, len(kb.sets))
	groupsGuard := NewReleaseGuard(releaseFunc(func() {
		for _, bg := range groups {
			bg.Release()
		}
	}))
	defer groupsGuard.Release()

	for i, ds := range kb.sets {
		bgl, err := kb.fw.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group%d", kb.entryPoint, i),
			Entries: ds.layout,
		})
		if err != nil {
			return nil, fmt.Errorf("create bind group layout %d: %w", i, err)
		}
		layouts = append(layouts, bgl)

		bg, err := kb.fw.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s_group%d", kb.entryPoint, i),
			Layout:  bgl,
			Entries: ds.binds,
		})
		if err != nil {
			return nil, fmt.Errorf("create bind group %d: %w", i, err)
		}
		groups = append(groups, bg)
	}

	pipelineLayout, err := kb.fw.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            kb.entryPoint,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	pipeline, err := kb.fw.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  kb.entryPoint,
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     kb.shader,
			EntryPoint: kb.entryPoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compile kernel %q: %w", kb.entryPoint, err)
	}

	groupsGuard.Keep()

	return RegisterWithGC(&Kernel{
		fw:         kb.fw,
		pipeline:   pipeline,
		groups:     groups,
		entryPoint: kb.entryPoint,
	}), nil
}

// Kernel is an executable compute entry point with a fixed pipeline and
// a fixed ordered list of bind groups. It is immutable after
// construction and carries no state across enqueues.
type Kernel struct {
	fw         *Framework
	pipeline   *wgpu.ComputePipeline
	groups     []*wgpu.BindGroup
	entryPoint string
}

// EntryPoint returns the shader entry point this kernel executes.
func (k *Kernel) EntryPoint() string {
	return k.entryPoint
}

// Enqueue records one compute dispatch with the given workgroup counts
// and submits it to the device queue. It returns as soon as the work is
// submitted; completion is only observable by reading a buffer or image
// the kernel wrote.
func (k *Kernel) Enqueue(x, y, z uint32) error {
	enc, err := k.fw.Device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: k.entryPoint})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer enc.Release()

	pass := enc.BeginComputePass(nil)

	pass.SetPipeline(k.pipeline)
	for i, bg := range k.groups {
		pass.SetBindGroup(uint32(i), bg, nil)
	}
	pass.DispatchWorkgroups(x, y, z)
	pass.End()
	pass.Release()

	cmd, err := enc.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish command encoder: %w", err)
	}
	defer cmd.Release()

	k.fw.Queue.Submit(cmd)

	return nil
}

// Release frees the pipeline and bind groups owned by this kernel. The
// buffers and images bound into it are not touched.
func (k *Kernel) Release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}

	for _, bg := range k.groups {
		bg.Release()
	}
	k.groups = nil
}

// Workgroups returns the number of workgroups needed to cover n items
// with the given workgroup size, rounding up.
func Workgroups[T constraints.Integer](n, size T) T {
	return (n + size - 1) / size
}
