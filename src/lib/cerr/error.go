package cerr

import "fmt"

// F is a loose bag of fields to attach to an error for logging.
type F map[string]interface{}

type Context struct {
	ContextFields F
}

func Field(key string, value interface{}) Context {
	return Context{}.Field(key, value)
}

func Fields(fields F) Context {
	return Context{}.Fields(fields)
}

func Wrap(cause error) WrappedContext {
	return Context{}.Wrap(cause)
}

func Error(message string) error {
	return Context{}.Error(message)
}

func (c Context) Field(key string, value interface{}) Context {
	return c.Fields(F{key: value})
}

func (c Context) Fields(fields F) Context {
	merged := F{}
	for key, value := range c.ContextFields {
		merged[key] = value
	}
	for key, value := range fields {
		merged[key] = value
	}

	return Context{ContextFields: merged}
}

func (c Context) Wrap(cause error) WrappedContext {
	// pull fields up from a wrapped contextual error so that
	// nothing gets lost when the error crosses package layers
	if contextualCause, ok := cause.(ContextualError); ok {
		return WrappedContext{
			context: contextualCause.Context.Fields(c.ContextFields),
			cause:   cause,
		}
	}

	return WrappedContext{
		context: c,
		cause:   cause,
	}
}

func (c Context) Error(message string) error {
	return ContextualError{
		Context: c,
		Message: message,
	}
}

type WrappedContext struct {
	context Context
	cause   error
}

func (w WrappedContext) Error(message string) error {
	return ContextualError{
		Context: w.context,
		Message: message,
		Cause:   w.cause,
	}
}

var _ error = ContextualError{}
var _ interface{ Unwrap() error } = ContextualError{}

type ContextualError struct {
	Context Context
	Message string
	Cause   error
}

func (c ContextualError) Error() string {
	if c.Cause == nil {
		return c.Message
	}

	return fmt.Sprintf("%s: %s", c.Message, c.Cause.Error())
}

func (c ContextualError) Unwrap() error {
	return c.Cause
}
