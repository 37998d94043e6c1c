package builders

import (
	"github.com/leapstack-labs/flowgen/pkg/ir"
)

// logSink declares an identity function that logs its argument.
func logSink() Builder {
	return Builder{
		Prefix: "log",
		Declare: func(ctx *Context) ([]ir.Stmt, error) {
			valueIdx, err := argIndex(ctx, "value")
			if err != nil {
				return nil, err
			}
			value := ir.Name(ctx.Inputs[valueIdx].ID)

			return []ir.Stmt{&ir.FuncDecl{
				Name:   ctx.Ident,
				Params: params(ctx.Inputs),
				Result: ir.TypeAny,
				Body: []ir.Stmt{
					ir.Do(ir.CallNamed(LogValue, value)),
					&ir.Return{Value: value},
				},
			}}, nil
		},
		Expression: callWithArgs,
		Effectful:  true,
		Sink:       true,
	}
}

// route declares a function registering its value under the resolved path.
func route() Builder {
	return Builder{
		Prefix: "route",
		Declare: func(ctx *Context) ([]ir.Stmt, error) {
			pathIdx, err := argIndex(ctx, "path")
			if err != nil {
				return nil, err
			}
			valueIdx, err := argIndex(ctx, "value")
			if err != nil {
				return nil, err
			}
			path := ir.Name(ctx.Inputs[pathIdx].ID)
			value := ir.Name(ctx.Inputs[valueIdx].ID)

			return []ir.Stmt{&ir.FuncDecl{
				Name:   ctx.Ident,
				Params: params(ctx.Inputs),
				Result: ir.TypeAny,
				Body: []ir.Stmt{
					ir.Do(ir.CallMethod(RouteTable, MethodRegister, path, value)),
					&ir.Return{Value: value},
				},
			}}, nil
		},
		Expression: callWithArgs,
		Effectful:  true,
	}
}

// listen declares a function starting a listener that serves the route table.
// Its value input only orders evaluation: everything feeding it has run
// (and registered its routes) before the listener starts.
func listen() Builder {
	return Builder{
		Prefix: "listen",
		Declare: func(ctx *Context) ([]ir.Stmt, error) {
			portIdx, err := argIndex(ctx, "port")
			if err != nil {
				return nil, err
			}
			port := ir.Name(ctx.Inputs[portIdx].ID)

			return []ir.Stmt{&ir.FuncDecl{
				Name:   ctx.Ident,
				Params: params(ctx.Inputs),
				Result: ir.TypeListener,
				Body: []ir.Stmt{
					&ir.Return{Value: ir.CallMethod(ListenerSet, MethodStart, port, ir.Name(Dispatch))},
				},
			}}, nil
		},
		Expression: callWithArgs,
		Effectful:  true,
	}
}
