// Package graph builds the GraphQL schema for users, tasks and login.
package graph

import (
	"github.com/graphql-go/graphql"
)

// NewSchema assembles the schema with r's resolvers. User deliberately has no
// password field.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"firstname": &graphql.Field{Type: graphql.String},
			"lastname":  &graphql.Field{Type: graphql.String},
			"email":     &graphql.Field{Type: graphql.String},
			"createdAt": &graphql.Field{Type: graphql.DateTime},
		},
	})

	taskType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Task",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"title":       &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"tags":        &graphql.Field{Type: graphql.NewList(graphql.String)},
			"done":        &graphql.Field{Type: graphql.Boolean},
			"userId":      &graphql.Field{Type: graphql.ID},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	// Circular references are added once both types exist.
	taskType.AddFieldConfig("author", &graphql.Field{
		Type:    userType,
		Resolve: r.resolve(r.taskAuthor),
	})
	userType.AddFieldConfig("tasks", &graphql.Field{
		Type:    graphql.NewList(taskType),
		Resolve: r.resolve(r.userTasks),
	})

	authResponseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthResponse",
		Fields: graphql.Fields{
			"token":   &graphql.Field{Type: graphql.String},
			"message": &graphql.Field{Type: graphql.String},
		},
	})

	createTaskInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreateTaskInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"description": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"tags":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.String))},
			"done":        &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		},
	})

	updateTaskInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UpdateTaskInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":       &graphql.InputObjectFieldConfig{Type: graphql.String},
			"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"tags":        &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.String)},
			"done":        &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		},
	})

	// Omitting userId lists every user's tasks.
	userIDArg := graphql.FieldConfigArgument{
		"userId": &graphql.ArgumentConfig{Type: graphql.ID},
	}
	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootQueryType",
		Fields: graphql.Fields{
			"getTodoTasks": &graphql.Field{
				Type:    graphql.NewList(taskType),
				Args:    userIDArg,
				Resolve: r.resolve(r.todoTasks),
			},
			"getDoneTasks": &graphql.Field{
				Type:    graphql.NewList(taskType),
				Args:    userIDArg,
				Resolve: r.resolve(r.doneTasks),
			},
			"getTask": &graphql.Field{
				Type:    taskType,
				Args:    idArg,
				Resolve: r.resolve(r.task),
			},
			"findTasks": &graphql.Field{
				Type: graphql.NewList(taskType),
				Args: graphql.FieldConfigArgument{
					"tags":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.String))},
					"userId": &graphql.ArgumentConfig{Type: graphql.ID},
				},
				Resolve: r.resolve(r.findTasks),
			},
			"me": &graphql.Field{
				Type:    userType,
				Resolve: r.resolve(r.me),
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addUser": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"firstname": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lastname":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"email":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolve(r.addUser),
			},
			"login": &graphql.Field{
				Type: authResponseType,
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolve(r.login),
			},
			"createTask": &graphql.Field{
				Type: taskType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(createTaskInput)},
				},
				Resolve: r.resolve(r.createTask),
			},
			"updateTask": &graphql.Field{
				Type: taskType,
				Args: graphql.FieldConfigArgument{
					"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"input": &graphql.ArgumentConfig{Type: updateTaskInput},
				},
				Resolve: r.resolve(r.updateTask),
			},
			"deleteTask": &graphql.Field{
				Type:    taskType,
				Args:    idArg,
				Resolve: r.resolve(r.deleteTask),
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
