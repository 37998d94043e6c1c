package compiler

import (
	"github.com/leapstack-labs/flowgen/internal/builders"
	"github.com/leapstack-labs/flowgen/pkg/ir"
)

// prelude declares the shared server state and the request dispatcher that
// every listener serves:
//
//	routes, listeners    the route table and the started listeners
//	handleError          logs a failure and answers 500
//	notFound             answers 404
//	dispatch             looks the request path up in routes
func prelude() []ir.Stmt {
	const (
		req  = "req"
		res  = "res"
		err  = "err"
		path = "path"
	)

	return []ir.Stmt{
		&ir.VarDecl{Name: builders.RouteTable, Value: ir.CallNamed(builders.NewRouteTable)},
		&ir.VarDecl{Name: builders.ListenerSet, Value: ir.CallNamed(builders.NewListeners)},
		&ir.FuncDecl{
			Name:   builders.HandleError,
			Params: []ir.Param{{Name: err, Type: ir.TypeError}, {Name: res, Type: ir.TypeResponse}},
			Body: []ir.Stmt{
				ir.Do(ir.CallNamed(builders.LogError, ir.Name(err))),
				ir.Do(ir.CallNamed(builders.RespondText, ir.Name(res), ir.Number(500), ir.String("Internal Server Error"))),
			},
		},
		&ir.FuncDecl{
			Name:   builders.NotFound,
			Params: []ir.Param{{Name: res, Type: ir.TypeResponse}},
			Body: []ir.Stmt{
				ir.Do(ir.CallNamed(builders.RespondText, ir.Name(res), ir.Number(404), ir.String("Not Found"))),
			},
		},
		&ir.FuncDecl{
			Name:   builders.Dispatch,
			Params: []ir.Param{{Name: req, Type: ir.TypeRequest}, {Name: res, Type: ir.TypeResponse}},
			Body: []ir.Stmt{&ir.TryCatch{
				Body: []ir.Stmt{
					&ir.VarDecl{Name: path, Value: ir.CallNamed(builders.RequestPath, ir.Name(req))},
					ir.Do(&ir.Conditional{
						Cond: ir.CallMethod(builders.RouteTable, builders.MethodHas, ir.Name(path)),
						Then: ir.CallMethod(builders.RouteTable, builders.MethodServe, ir.Name(path), ir.Name(res)),
						Else: ir.CallNamed(builders.NotFound, ir.Name(res)),
					}),
				},
				ErrName: err,
				Catch: []ir.Stmt{
					ir.Do(ir.CallNamed(builders.HandleError, ir.Name(err), ir.Name(res))),
				},
			}},
		},
	}
}

// emit lays the program out: prelude, node declarations in declaration
// order, then the startup statements. Listeners begin serving only after
// every startup statement has run, followed by the shutdown wait.
func (c *compilation) emit() *ir.Program {
	pre := prelude()
	decls := make([]ir.Stmt, 0, len(pre)+len(c.decls))
	decls = append(decls, pre...)
	decls = append(decls, c.decls...)

	main := make([]ir.Stmt, 0, len(c.main)+2)
	main = append(main, c.main...)
	main = append(main, ir.Do(ir.CallMethod(builders.ListenerSet, builders.MethodServeAll)))
	main = append(main, ir.Do(ir.CallMethod(builders.ListenerSet, builders.MethodCloseOnSignal)))

	return &ir.Program{Decls: decls, Main: main}
}
