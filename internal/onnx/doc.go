// Package onnx exports trained surrogate networks to ONNX and reads them back.
//
// ONNX (Open Neural Network Exchange) is an open format for representing
// deep learning models. A tanh MLP maps onto four operators:
//
//	MatMul(h, W_i)  →  Add(·, b_i)  →  Tanh  →  [Add(h, ·) for residual layers]
//
// Key components:
//   - ModelProto: Top-level ONNX model structure with metadata and graph
//   - GraphProto: Computation graph with nodes, inputs, outputs, and initializers
//   - NodeProto: Single operation in the graph
//   - TensorProto: Weight/initializer tensor with data and shape
//   - Marshal/Parse: protobuf wire encoding via google.golang.org/protobuf/encoding/protowire
//   - Export: network → ModelProto
//   - Model: a parsed graph that can be evaluated or turned back into a network
//
// Tensors are stored as DOUBLE (float64) raw little-endian data.
//
// Example usage:
//
//	if err := onnx.ExportFile("Burgers_1_PINN.onnx", net, meta); err != nil {
//	    log.Fatal(err)
//	}
//
//	model, err := onnx.Load("Burgers_1_PINN.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := model.Forward(points, backend)
package onnx
