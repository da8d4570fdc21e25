package bind_group_provider

// BufferWrite is one queued upload into the buffer assigned to a provider's
// binding slot, at the given byte offset. The renderer submits slices of these
// as one queue batch; per-frame uniform rewrites are expressed this way.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
