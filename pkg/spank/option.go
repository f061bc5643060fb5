package spank

// Option declares a command-line option the plugin adds to srun, sbatch and
// salloc. Build one with NewOption and hand it to Handle.RegisterOption
// from the Init callback.
type Option struct {
	name    string
	arginfo string
	hasArg  bool
	usage   string
}

// NewOption starts building an option with the given name. The name is what
// users type after "--".
func NewOption(name string) *Option {
	return &Option{name: name}
}

// TakesValue declares that the option expects a value, with argName as the
// display name used in the usage output (e.g. "--renice=[prio]"). Options
// without TakesValue are flags: only their presence is observable.
func (o *Option) TakesValue(argName string) *Option {
	o.arginfo = argName
	o.hasArg = true
	return o
}

// Usage sets the help text shown by srun --help.
func (o *Option) Usage(text string) *Option {
	o.usage = text
	return o
}

// Name returns the option name.
func (o *Option) Name() string {
	return o.name
}
