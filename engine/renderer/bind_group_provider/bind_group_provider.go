package bind_group_provider

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the implementation of the BindGroupProvider interface.
// It holds the declared entry list for one binding set plus the GPU resources
// resolved for each slot.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label identifies this binding set in GPU object labels and error messages
	label string

	// entries is the ordered binding declaration; index == binding
	entries []Entry

	// bindGroup is the bind group derived from entries and the resolved resources
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the layout derived from entries
	bindGroupLayout *wgpu.BindGroupLayout

	// buffers maps binding index to the buffer resolved for that slot
	buffers map[int]*wgpu.Buffer
	// textureViews maps binding index to the texture view resolved for that slot
	textureViews map[int]*wgpu.TextureView
	// samplers maps binding index to the sampler resolved for that slot
	samplers map[int]*wgpu.Sampler
}

// BindGroupProvider declares one GPU binding set. The ordered Entry list set at
// construction is the single source of truth: the renderer derives both the
// BindGroupLayout and the BindGroup from it, reading the buffer, texture view,
// and sampler assigned to each slot. Resources are shared handles owned by the
// renderer's arena; Release drops only the derived bind group objects.
type BindGroupProvider interface {
	// Label returns the label identifying this binding set.
	//
	// Returns:
	//   - string: the label for this provider
	Label() string

	// Entries returns the ordered binding declaration for this set. The slice
	// must not be mutated after construction.
	//
	// Returns:
	//   - []Entry: the declared entries, where index equals binding
	Entries() []Entry

	// LayoutDescriptor derives the bind group layout descriptor from the
	// declared entries.
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout descriptor for this set
	LayoutDescriptor() wgpu.BindGroupLayoutDescriptor

	// BindGroup returns the bind group for this provider, or nil when not yet derived.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group for this provider
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the bind group layout for this provider, or nil when not yet derived.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout for this provider
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer retrieves the buffer assigned to the given binding slot.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer at that slot, or nil if unassigned
	Buffer(binding int) *wgpu.Buffer

	// TextureView retrieves the texture view assigned to the given binding slot.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view at that slot, or nil if unassigned
	TextureView(binding int) *wgpu.TextureView

	// Sampler retrieves the sampler assigned to the given binding slot.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler at that slot, or nil if unassigned
	Sampler(binding int) *wgpu.Sampler

	// SetBindGroup stores the derived bind group.
	//
	// Parameters:
	//   - bg: the bind group to store
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout stores the derived bind group layout.
	//
	// Parameters:
	//   - bgl: the bind group layout to store
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer assigns a buffer to a binding slot.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to assign
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTextureView assigns a texture view to a binding slot.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view to assign
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler assigns a sampler to a binding slot.
	//
	// Parameters:
	//   - binding: the binding index
	//   - s: the sampler to assign
	SetSampler(binding int, s *wgpu.Sampler)

	// InvalidateBindGroup releases the derived bind group so it can be rebuilt
	// after one of the slot resources was recreated, e.g. on resize. The layout
	// is kept since the declaration did not change.
	InvalidateBindGroup()

	// Release drops the derived bind group and layout. Slot resources are arena
	// handles owned by the renderer and are not released here.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider for one binding set.
//
// Parameters:
//   - label: the label identifying this binding set
//   - entries: the ordered binding declaration; index equals binding
//   - opts: a variadic list of BindGroupProviderOption functions to configure the provider
//
// Returns:
//   - BindGroupProvider: a new provider with the given declaration
func NewBindGroupProvider(label string, entries []Entry, opts ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:           &sync.Mutex{},
		label:        label,
		entries:      entries,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.label
}

func (p *bindGroupProvider) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries
}

func (p *bindGroupProvider) LayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	p.mu.Lock()
	defer p.mu.Unlock()

	layoutEntries := make([]wgpu.BindGroupLayoutEntry, len(p.entries))
	for i, e := range p.entries {
		layoutEntries[i] = e.layoutEntry(i)
	}
	return wgpu.BindGroupLayoutDescriptor{
		Label:   p.label + " Layout",
		Entries: layoutEntries,
	}
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samplers[binding]
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samplers[binding] = s
}

func (p *bindGroupProvider) InvalidateBindGroup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}
