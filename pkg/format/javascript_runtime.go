package format

// jsRuntime is the fixed support code every JavaScript program starts with.
// It mirrors the Go runtime names so the same IR prints for both targets.
// Servers start listening in serveAll, after every route is registered.
const jsRuntime = `// Code generated by flowgen. DO NOT EDIT.
"use strict";

const http = require("http");

function newRouteTable() {
  const handlers = new Map();
  return {
    register(path, value) {
      path = String(path);
      if (!path.startsWith("/")) {
        path = "/" + path;
      }
      handlers.set(path, value);
    },
    has(path) {
      return handlers.has(path);
    },
    serve(path, res) {
      respond(res, handlers.get(path));
    },
  };
}

function newListenerSet() {
  const servers = [];
  const ports = new Map();
  return {
    start(port, handler) {
      const server = http.createServer((req, res) => handler(req, res));
      ports.set(server, port);
      return server;
    },
    serveAll() {
      servers.forEach((server) => {
        const port = ports.get(server);
        server.listen(port, () => console.error("listening on port " + port));
      });
    },
    track(server) {
      servers.push(server);
      return server;
    },
    closeOnSignal() {
      const shutdown = () => {
        console.error("closing all listeners");
        if (servers.length === 0) {
          process.exit(0);
        }
        let closedCount = 0;
        servers.forEach((server) => {
          server.close(() => {
            closedCount++;
            if (closedCount === servers.length) {
              console.error("all listeners closed");
              process.exit(0);
            }
          });
        });
      };
      process.once("SIGINT", shutdown);
      process.once("SIGTERM", shutdown);
    },
  };
}

function requestPath(req) {
  return new URL(req.url, "http://localhost").pathname;
}

function respond(res, value) {
  if (typeof value === "string") {
    respondText(res, 200, value);
    return;
  }
  const body = JSON.stringify(value === undefined ? null : value);
  res.writeHead(200, { "Content-Type": "application/json" });
  res.end(body);
}

function respondText(res, status, body) {
  res.writeHead(status, { "Content-Type": "text/plain" });
  res.end(body);
}

function logValue(value) {
  console.log(typeof value === "string" ? value : JSON.stringify(value));
}

function logError(err) {
  console.error("server error:", err);
}
`
