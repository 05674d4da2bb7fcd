package mcp

// Parameter is one input or output property of a tool.
type Parameter interface {
	apply(builder *paramBuilder)
	toParamDef() paramDef
}

// Option modifies a parameter.
type Option interface {
	applyToParam(def *paramDef)
}

type paramBuilder struct {
	params       []paramDef
	outputParams []paramDef
}

type optionFunc func(def *paramDef)

func (f optionFunc) applyToParam(def *paramDef) { f(def) }

// Required marks the parameter as mandatory.
func Required() Option {
	return optionFunc(func(def *paramDef) { def.required = true })
}

// Enum restricts a string parameter to the given values.
func Enum(values ...string) Option {
	return optionFunc(func(def *paramDef) { def.enum = values })
}

// Default documents the value used when the argument is absent.
func Default(value any) Option {
	return optionFunc(func(def *paramDef) { def.defaultValue = value })
}

type param struct {
	def paramDef
}

func (p *param) toParamDef() paramDef {
	return p.def
}

func (p *param) apply(builder *paramBuilder) {
	builder.params = append(builder.params, p.def)
}

func newParam(name, paramType, description string, options []Option) *param {
	p := &param{def: paramDef{
		name:        name,
		paramType:   paramType,
		description: description,
		properties:  make(map[string]*paramDef),
	}}
	for _, opt := range options {
		opt.applyToParam(&p.def)
	}
	return p
}

// String creates a string parameter
func String(name, description string, options ...Option) Parameter {
	return newParam(name, "string", description, options)
}

// Number creates a number parameter
func Number(name, description string, options ...Option) Parameter {
	return newParam(name, "number", description, options)
}

// Boolean creates a boolean parameter
func Boolean(name, description string, options ...Option) Parameter {
	return newParam(name, "boolean", description, options)
}

// StringArray creates a string array parameter
func StringArray(name, description string, options ...Option) Parameter {
	return newParam(name, "array:string", description, options)
}

// Object creates an object parameter. Parameters among propertiesAndOptions
// become its properties; with none the object accepts any members.
func Object(name, description string, propertiesAndOptions ...any) Parameter {
	var options []Option
	var properties []Parameter
	for _, item := range propertiesAndOptions {
		switch v := item.(type) {
		case Parameter:
			properties = append(properties, v)
		case Option:
			options = append(options, v)
		}
	}

	p := newParam(name, "object", description, options)
	for _, prop := range properties {
		def := prop.toParamDef()
		p.def.properties[def.name] = &def
	}
	return p
}

// Any creates a parameter that accepts any JSON value.
func Any(name, description string, options ...Option) Parameter {
	return newParam(name, "", description, options)
}

type outputParam struct {
	parameters []Parameter
}

func (o *outputParam) toParamDef() paramDef {
	return paramDef{}
}

func (o *outputParam) apply(builder *paramBuilder) {
	for _, param := range o.parameters {
		builder.outputParams = append(builder.outputParams, param.toParamDef())
	}
}

// Output declares the properties of the tool's structured content.
func Output(parameters ...Parameter) Parameter {
	return &outputParam{parameters: parameters}
}

// NewTool creates a new tool with the declarative API
func NewTool(name, description string, parameters ...Parameter) *ToolBuilder {
	builder := &paramBuilder{}
	for _, param := range parameters {
		param.apply(builder)
	}

	return &ToolBuilder{
		name:         name,
		description:  description,
		params:       builder.params,
		outputParams: builder.outputParams,
	}
}
