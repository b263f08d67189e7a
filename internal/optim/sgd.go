package optim

import (
	"fmt"

	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Example:
//
//	optimizer := optim.NewSGD(net.Parameters(), optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	}, backend)
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float64
	momentum   float64
	velocities map[*nn.Parameter[B]][]float64
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate
	Momentum float64 // Momentum factor (0 = no momentum)
}

// NewSGD creates a new SGD optimizer.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, _ B) *SGD[B] {
	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter[B]][]float64),
	}
}

// Step performs a single optimization step.
//
// Parameters with no gradient are skipped.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}
		param.SetGrad(tensor.New(grad, param.Tensor().Backend()))

		paramData := param.Tensor().Data()
		gradData := grad.Data()

		if s.momentum == 0 {
			for i := range paramData {
				paramData[i] -= s.lr * gradData[i]
			}
			continue
		}

		velocity, ok := s.velocities[param]
		if !ok {
			velocity = make([]float64, len(paramData))
			s.velocities[param] = velocity
		}
		for i := range paramData {
			velocity[i] = s.momentum*velocity[i] + gradData[i]
			paramData[i] -= s.lr * velocity[i]
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD[B]) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (s *SGD[B]) GetLR() float64 {
	return s.lr
}

// SetLR sets the learning rate.
func (s *SGD[B]) SetLR(lr float64) {
	s.lr = lr
}

// Type returns the optimizer name stored in checkpoints.
func (s *SGD[B]) Type() string {
	return "SGD"
}

// Config returns the hyperparameters stored in checkpoints.
func (s *SGD[B]) Config() map[string]any {
	return map[string]any{
		"lr":       s.lr,
		"momentum": s.momentum,
	}
}

// StateDict exports the momentum buffers as "velocity.<name>".
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for _, param := range s.params {
		velocity, ok := s.velocities[param]
		if !ok {
			continue
		}
		state["velocity."+param.Name()], _ = tensor.RawFromSlice(velocity, param.Tensor().Shape(), tensor.CPU)
	}
	return state
}

// LoadStateDict restores momentum buffers written by StateDict.
func (s *SGD[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for _, param := range s.params {
		raw, ok := stateDict["velocity."+param.Name()]
		if !ok {
			continue
		}
		if raw.NumElements() != param.Tensor().NumElements() {
			return fmt.Errorf("velocity for %s has %d elements, expected %d",
				param.Name(), raw.NumElements(), param.Tensor().NumElements())
		}
		s.velocities[param] = append([]float64(nil), raw.Data()...)
	}
	return nil
}
